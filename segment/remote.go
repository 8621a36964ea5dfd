package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/chaos-io/cutout/bitmap"
	nhttp "github.com/chaos-io/cutout/util/http"
)

const segmentPath = "/api/segment"

type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RemoteSegmenter 调用远端分割服务（BiRefNet 等）
/*
	curl -X POST "$BASE_URL/api/segment" \
	  -H "Content-Type: application/json" \
	  -d '{"image": "data:image/png;base64,...", "quality": "accurate"}'

{"mask": "data:image/png;base64,..."}
*/
type RemoteSegmenter struct {
	segmentURL string
	cli        nhttp.IClient
}

func NewRemoteSegmenter(cfg RemoteConfig) *RemoteSegmenter {
	return &RemoteSegmenter{
		segmentURL: strings.TrimRight(cfg.BaseURL, "/") + segmentPath,
		cli:        nhttp.NewHTTPClientWithTimeout(cfg.Timeout),
	}
}

type segmentReq struct {
	Image   string `json:"image"`
	Quality string `json:"quality"`
}

type segmentResp struct {
	Mask  string `json:"mask"`
	Error string `json:"error,omitempty"`
}

func (r *RemoteSegmenter) Segment(ctx context.Context, img *bitmap.Bitmap, opts Options) (*bitmap.Mask, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	// 1. 图片转 base64 data uri
	data, err := encodeDataURI(img.NRGBA())
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	// 2. 请求分割
	resp := &segmentResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: r.segmentURL,
		Method:     http.MethodPost,
		Body:       &segmentReq{Image: data, Quality: opts.Quality.String()},
		Response:   resp,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("remote segmenter: %s", resp.Error)
	}

	// 3. 解析遮罩
	mask, err := decodeMaskDataURI(resp.Mask)
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	return mask, nil
}

func encodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decodeMaskDataURI 同时接受 data uri 与裸 base64
func decodeMaskDataURI(s string) (*bitmap.Mask, error) {
	if s == "" {
		return nil, fmt.Errorf("empty mask")
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, "base64,")
		if i < 0 {
			return nil, fmt.Errorf("mask data uri is not base64")
		}
		s = s[i+len("base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	return bitmap.MaskFromImage(img), nil
}
