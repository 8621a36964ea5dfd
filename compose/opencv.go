//go:build opencv

package compose

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func init() {
	registerBuiltin(BlendWithMask, "opencv "+gocv.Version(), FilterFunc(blendWithMaskCV))
}

// blendWithMaskCV 背景全透明时混合退化为通道合并：split(RGBA) 取 RGB，再与遮罩 merge
// 其他情况交给纯 Go 实现
func blendWithMaskCV(in FilterInput) (image.Image, error) {
	if _, ok := in.Background.(clearImage); !ok || in.Image == nil || in.Mask == nil {
		return blendWithMask(in)
	}
	r := in.Image.Bounds()
	if in.Mask.Rect != r || r.Min != (image.Point{}) {
		return blendWithMask(in)
	}

	fg := render(in.Image)
	src, err := gocv.NewMatFromBytes(r.Dy(), r.Dx(), gocv.MatTypeCV8UC4, fg.Pix)
	if err != nil {
		return nil, fmt.Errorf("source mat: %w", err)
	}
	defer func() {
		_ = src.Close()
	}()

	maskPix := in.Mask.Pix
	if in.Mask.Stride != r.Dx() {
		maskPix = make([]byte, r.Dx()*r.Dy())
		for y := 0; y < r.Dy(); y++ {
			copy(maskPix[y*r.Dx():(y+1)*r.Dx()], in.Mask.Pix[y*in.Mask.Stride:])
		}
	}
	alpha, err := gocv.NewMatFromBytes(r.Dy(), r.Dx(), gocv.MatTypeCV8UC1, maskPix)
	if err != nil {
		return nil, fmt.Errorf("mask mat: %w", err)
	}
	defer func() {
		_ = alpha.Close()
	}()

	channels := gocv.Split(src)
	defer func() {
		for _, c := range channels {
			_ = c.Close()
		}
	}()
	if len(channels) != 4 {
		return nil, fmt.Errorf("split: got %d channels", len(channels))
	}

	merged := gocv.NewMat()
	defer func() {
		_ = merged.Close()
	}()
	gocv.Merge([]gocv.Mat{channels[0], channels[1], channels[2], alpha}, &merged)
	if merged.Empty() {
		return nil, nil
	}

	return &image.NRGBA{Pix: merged.ToBytes(), Stride: r.Dx() * 4, Rect: r}, nil
}
