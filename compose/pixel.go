package compose

import (
	"github.com/chaos-io/cutout/bitmap"
)

// PixelCompositor 备用方法：手动处理每个像素
type PixelCompositor struct{}

func NewPixelCompositor() *PixelCompositor {
	return &PixelCompositor{}
}

func (p *PixelCompositor) Name() string {
	return "pixel"
}

// Composite 遍历原图范围内每个像素
//
//	遮罩已重采样到原图尺寸，下标一一对应
//	源像素步长由 bits-per-pixel 决定，兼容 3 字节 RGB 与 4 字节 RGBA
//	输出 RGB 原样拷贝，A 等于遮罩值
func (p *PixelCompositor) Composite(original *bitmap.Bitmap, mask *bitmap.Mask) (*bitmap.Bitmap, error) {
	if err := original.Validate(); err != nil {
		return nil, err
	}
	mask, err := fitMask(original, mask)
	if err != nil {
		return nil, err
	}

	out := bitmap.New(original.Width, original.Height, bitmap.FormatRGBA)
	srcBpp := original.Format.BitsPerPixel() / 8

	for y := 0; y < original.Height; y++ {
		src := original.Pix[y*original.Stride:]
		m := mask.Pix[y*mask.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < original.Width; x++ {
			s, d := x*srcBpp, x*4
			dst[d] = src[s]
			dst[d+1] = src[s+1]
			dst[d+2] = src[s+2]
			dst[d+3] = m[x]
		}
	}
	return out, nil
}
