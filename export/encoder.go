package export

import (
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
)

// DefaultJPEGQuality 对应 0.9 的压缩质量
const DefaultJPEGQuality = 90

type Encoder interface {
	Format() SaveFormat
	Extension() string
	// Available 编码器在当前环境是否可用
	Available() bool
	Encode(w io.Writer, img image.Image) error
}

type PNGEncoder struct{}

func (PNGEncoder) Format() SaveFormat { return FormatPNG }
func (PNGEncoder) Extension() string  { return FormatPNG.Extension() }
func (PNGEncoder) Available() bool    { return true }

func (PNGEncoder) Encode(w io.Writer, img image.Image) error {
	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}

// JPEGEncoder 不支持透明度，透明区域按预乘结果输出为黑色
type JPEGEncoder struct {
	Quality int
}

func (JPEGEncoder) Format() SaveFormat { return FormatJPG }
func (JPEGEncoder) Extension() string  { return FormatJPG.Extension() }
func (JPEGEncoder) Available() bool    { return true }

func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	q := e.Quality
	if q <= 0 || q > 100 {
		q = DefaultJPEGQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
}

// WebPEncoder 无损编码，透明区域保留原始 RGB
type WebPEncoder struct{}

func (WebPEncoder) Format() SaveFormat { return FormatWebP }
func (WebPEncoder) Extension() string  { return FormatWebP.Extension() }
func (WebPEncoder) Available() bool    { return true }

func (WebPEncoder) Encode(w io.Writer, img image.Image) error {
	// libwebp 接收非预乘 RGBA，直接复用 NRGBA 的字节
	src := toNRGBA(img)
	rgba := &image.RGBA{Pix: src.Pix, Stride: src.Stride, Rect: src.Rect}
	return webp.Encode(w, rgba, &webp.Options{Lossless: true, Exact: true})
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
