package compose

import (
	"fmt"
	"image"

	"github.com/chaos-io/cutout/bitmap"
	"golang.org/x/image/draw"
)

// Resample 把遮罩独立按 X/Y 缩放到 width x height
//
// 最近邻、像素中心采样：目标 (x, y) 读源
// (floor((2x+1)*Mw / 2W), floor((2y+1)*Mh / 2H))
// 不保持宽高比，结果尺寸严格等于目标尺寸
func Resample(mask *bitmap.Mask, width, height int) (*bitmap.Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidDimensions, width, height)
	}
	if err := mask.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}
	if mask.Width == width && mask.Height == height {
		return mask.Clone(), nil
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), mask.Gray(), mask.Bounds(), draw.Src, nil)

	return &bitmap.Mask{Width: width, Height: height, Stride: dst.Stride, Pix: dst.Pix}, nil
}
