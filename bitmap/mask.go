package bitmap

import (
	"fmt"
	"image"
)

// Mask 单通道 8 bit 置信度，0 为背景，255 为前景
type Mask struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewMask 分配一个全 0 的遮罩
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Stride: width,
		Pix:    make([]byte, width*height),
	}
}

// MaskFromGray 拷贝灰度图为遮罩
func MaskFromGray(img *image.Gray) *Mask {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	m := NewMask(w, h)
	for y := 0; y < h; y++ {
		copy(m.Pix[y*m.Stride:(y+1)*m.Stride], img.Pix[y*img.Stride:y*img.Stride+w])
	}
	return m
}

// MaskFromImage 按亮度把任意图像转成遮罩
func MaskFromImage(img image.Image) *Mask {
	if g, ok := img.(*image.Gray); ok {
		return MaskFromGray(g)
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return MaskFromGray(g)
}

func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Validate 检查遮罩缓冲区
func (m *Mask) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mask", ErrBufferUnavailable)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: empty mask %dx%d", ErrBufferUnavailable, m.Width, m.Height)
	}
	if m.Stride < m.Width {
		return fmt.Errorf("%w: mask stride %d too small for width %d", ErrBufferUnavailable, m.Stride, m.Width)
	}
	if need := (m.Height-1)*m.Stride + m.Width; len(m.Pix) < need {
		return fmt.Errorf("%w: mask has %d bytes, need %d", ErrBufferUnavailable, len(m.Pix), need)
	}
	return nil
}

// At 读取 (x, y) 的遮罩值
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Stride+x]
}

// Gray 零拷贝的灰度视图
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{Pix: m.Pix, Stride: m.Stride, Rect: m.Bounds()}
}

// Alpha 零拷贝的 alpha 视图，可直接作为 draw 的 mask
func (m *Mask) Alpha() *image.Alpha {
	return &image.Alpha{Pix: m.Pix, Stride: m.Stride, Rect: m.Bounds()}
}

// Clone 深拷贝，结果 Stride 等于 Width
func (m *Mask) Clone() *Mask {
	return MaskFromGray(m.Gray())
}
