package segment

import (
	"context"
	"fmt"
	"strings"

	"github.com/chaos-io/cutout/bitmap"
)

// Quality 分割质量偏好
type Quality int

const (
	QualityFast Quality = iota
	QualityBalanced
	QualityAccurate
)

func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityBalanced:
		return "balanced"
	case QualityAccurate:
		return "accurate"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// ParseQuality 大小写不敏感
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast":
		return QualityFast, nil
	case "balanced":
		return QualityBalanced, nil
	case "accurate", "":
		return QualityAccurate, nil
	default:
		return QualityAccurate, fmt.Errorf("unknown quality %q", s)
	}
}

type Options struct {
	Quality Quality
}

// Segmenter 人像分割，返回 0-255 的前景置信度遮罩
// 输入必须已经是 Up 方向，遮罩分辨率可以与输入不同
type Segmenter interface {
	Segment(ctx context.Context, img *bitmap.Bitmap, opts Options) (*bitmap.Mask, error)
}

// SegmenterFunc 函数适配器
type SegmenterFunc func(ctx context.Context, img *bitmap.Bitmap, opts Options) (*bitmap.Mask, error)

func (f SegmenterFunc) Segment(ctx context.Context, img *bitmap.Bitmap, opts Options) (*bitmap.Mask, error) {
	return f(ctx, img, opts)
}
