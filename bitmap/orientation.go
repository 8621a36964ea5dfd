package bitmap

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
)

// Orientation EXIF 方向标记，取值 1-8
type Orientation uint8

const (
	Up            Orientation = 1
	UpMirrored    Orientation = 2
	Down          Orientation = 3
	DownMirrored  Orientation = 4
	LeftMirrored  Orientation = 5
	Right         Orientation = 6
	RightMirrored Orientation = 7
	Left          Orientation = 8
)

var orientationNames = map[Orientation]string{
	Up:            "up",
	UpMirrored:    "upMirrored",
	Down:          "down",
	DownMirrored:  "downMirrored",
	LeftMirrored:  "leftMirrored",
	Right:         "right",
	RightMirrored: "rightMirrored",
	Left:          "left",
}

func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Orientation(%d)", uint8(o))
}

// IsIdentity 未知取值按 Up 处理
func (o Orientation) IsIdentity() bool {
	return o < UpMirrored || o > Left
}

// SwapsAxes 5-8 需要交换宽高
func (o Orientation) SwapsAxes() bool {
	return o >= LeftMirrored && o <= Left
}

// DisplaySize 人眼看到的宽高
func (b *Bitmap) DisplaySize() (int, int) {
	if b.Orientation.SwapsAxes() {
		return b.Height, b.Width
	}
	return b.Width, b.Height
}

func (o Orientation) transform() func(image.Image) *image.NRGBA {
	switch o {
	case UpMirrored:
		return imaging.FlipH
	case Down:
		return imaging.Rotate180
	case DownMirrored:
		return imaging.FlipV
	case LeftMirrored:
		return imaging.Transpose
	case Right:
		return imaging.Rotate270
	case RightMirrored:
		return imaging.Transverse
	case Left:
		return imaging.Rotate90
	default:
		return nil
	}
}

// Normalize 把位图重新绘制到方向为 Up 的新缓冲区
//
//	已经是 Up 的位图原样返回
//	像素格式保持不变
//	缓冲区不可用时退化为返回原图
func Normalize(b *Bitmap) *Bitmap {
	if b == nil || b.Orientation.IsIdentity() {
		return b
	}
	if err := b.Validate(); err != nil {
		slog.Warn("normalize orientation skipped", "orientation", b.Orientation, "error", err)
		return b
	}

	out := fromNRGBA(b.Orientation.transform()(b.NRGBA()), b.Format)
	out.Orientation = Up

	slog.Debug("normalized orientation",
		"from", b.Orientation, "src", fmt.Sprintf("%dx%d", b.Width, b.Height),
		"dst", fmt.Sprintf("%dx%d", out.Width, out.Height))
	return out
}
