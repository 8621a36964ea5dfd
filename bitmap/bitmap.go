package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// ErrBufferUnavailable 无法从位图拿到完整的像素缓冲区
var ErrBufferUnavailable = errors.New("bitmap: pixel buffer unavailable")

// PixelFormat 每通道 8 bit 的像素排列
type PixelFormat uint8

const (
	FormatRGB PixelFormat = iota + 1
	FormatRGBA
)

// BitsPerPixel 每个像素占用的 bit 数
func (f PixelFormat) BitsPerPixel() int {
	switch f {
	case FormatRGB:
		return 24
	case FormatRGBA:
		return 32
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGB:
		return "RGB"
	case FormatRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
}

// Bitmap 解码后的原始像素，Stride 为每行字节数
type Bitmap struct {
	Width       int
	Height      int
	Stride      int
	Format      PixelFormat
	Pix         []byte
	Orientation Orientation
}

// New 分配一个方向为 Up 的空白位图
func New(width, height int, format PixelFormat) *Bitmap {
	stride := width * format.BitsPerPixel() / 8
	return &Bitmap{
		Width:       width,
		Height:      height,
		Stride:      stride,
		Format:      format,
		Pix:         make([]byte, stride*height),
		Orientation: Up,
	}
}

// BytesPerPixel 由 bits-per-pixel 推出，不假设固定为 4
func (b *Bitmap) BytesPerPixel() int {
	return b.Format.BitsPerPixel() / 8
}

// Bounds 位图范围，原点在左上角
func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Validate 检查缓冲区是否足够容纳 Height 行像素
func (b *Bitmap) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil bitmap", ErrBufferUnavailable)
	}
	bpp := b.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: unsupported pixel format %s", ErrBufferUnavailable, b.Format)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: empty extent %dx%d", ErrBufferUnavailable, b.Width, b.Height)
	}
	if b.Stride < b.Width*bpp {
		return fmt.Errorf("%w: stride %d too small for width %d", ErrBufferUnavailable, b.Stride, b.Width)
	}
	if need := (b.Height-1)*b.Stride + b.Width*bpp; len(b.Pix) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferUnavailable, len(b.Pix), need)
	}
	return nil
}

// NRGBA 展开为 *image.NRGBA，RGB 源的 alpha 填 255
func (b *Bitmap) NRGBA() *image.NRGBA {
	dst := image.NewNRGBA(b.Bounds())
	bpp := b.BytesPerPixel()
	for y := 0; y < b.Height; y++ {
		src := b.Pix[y*b.Stride:]
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Width; x++ {
			s, d := x*bpp, x*4
			row[d] = src[s]
			row[d+1] = src[s+1]
			row[d+2] = src[s+2]
			if bpp == 4 {
				row[d+3] = src[s+3]
			} else {
				row[d+3] = 0xff
			}
		}
	}
	return dst
}

// FromImage 把任意 image.Image 转成位图
// 只要存在非 255 的 alpha 就保留为 RGBA，否则压成 3 字节 RGB
func FromImage(img image.Image, o Orientation) *Bitmap {
	src := toNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	if hasUsefulAlpha(src) {
		b := New(w, h, FormatRGBA)
		for y := 0; y < h; y++ {
			copy(b.Pix[y*b.Stride:(y+1)*b.Stride], src.Pix[y*src.Stride:y*src.Stride+w*4])
		}
		b.Orientation = o
		return b
	}

	b := New(w, h, FormatRGB)
	for y := 0; y < h; y++ {
		s := src.Pix[y*src.Stride:]
		d := b.Pix[y*b.Stride:]
		for x := 0; x < w; x++ {
			d[x*3] = s[x*4]
			d[x*3+1] = s[x*4+1]
			d[x*3+2] = s[x*4+2]
		}
	}
	b.Orientation = o
	return b
}

// fromNRGBA 按指定格式从 NRGBA 拷回位图
func fromNRGBA(img *image.NRGBA, format PixelFormat) *Bitmap {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	b := New(w, h, format)
	bpp := b.BytesPerPixel()
	for y := 0; y < h; y++ {
		s := img.Pix[y*img.Stride:]
		d := b.Pix[y*b.Stride:]
		for x := 0; x < w; x++ {
			copy(d[x*bpp:x*bpp+bpp], s[x*4:x*4+bpp])
		}
	}
	return b
}

// hasUsefulAlpha 检查 alpha 通道是否真的包含透明信息
func hasUsefulAlpha(img *image.NRGBA) bool {
	w := img.Rect.Dx()
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0xff {
				return true
			}
		}
	}
	return false
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
