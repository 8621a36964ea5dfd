package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/chaos-io/cutout/bitmap"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

const (
	// maxImageBytes 单张图片上限
	maxImageBytes = 64 << 20
	// maxImagePixels 解码前按头部声明的尺寸检查，100MP
	maxImagePixels = 100_000_000
)

var ErrImageTooLarge = errors.New("image dimensions too large")

// DecodeBitmap 解码 JPEG/PNG/WebP，并带上 EXIF 方向
func DecodeBitmap(data []byte) (*bitmap.Bitmap, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("decode image: %dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	o := readOrientation(data)
	slog.Debug("image decoded", "format", format, "bounds", img.Bounds(), "orientation", o)
	return bitmap.FromImage(img, o), nil
}

// readOrientation 没有 EXIF 或解析失败时视为 Up
func readOrientation(data []byte) bitmap.Orientation {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return bitmap.Up
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return bitmap.Up
	}
	v, err := tag.Int(0)
	if err != nil || v < int(bitmap.Up) || v > int(bitmap.Left) {
		return bitmap.Up
	}
	return bitmap.Orientation(v)
}

// ReadBitmap 从 reader 读取并解码
func ReadBitmap(r io.Reader) (*bitmap.Bitmap, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return DecodeBitmap(data)
}

// OpenBitmap 打开本地图片
func OpenBitmap(path string) (*bitmap.Bitmap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	return ReadBitmap(file)
}

// DownloadBitmap 下载图片
func DownloadBitmap(ctx context.Context, url string) (*bitmap.Bitmap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	return ReadBitmap(resp.Body)
}

// LoadBitmap 按前缀选择下载或打开本地文件
func LoadBitmap(ctx context.Context, src string) (*bitmap.Bitmap, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return DownloadBitmap(ctx, src)
	}
	return OpenBitmap(src)
}
