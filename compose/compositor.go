package compose

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaos-io/cutout/bitmap"
)

var (
	// ErrFilterUnavailable 混合滤镜未注册
	ErrFilterUnavailable = errors.New("compose: blend filter unavailable")

	ErrNoOutput = errors.New("compose: filter graph produced no output")

	// ErrCompositeFailed 所有合成路径都失败
	ErrCompositeFailed = errors.New("compose: composite failed")

	ErrInvalidDimensions = errors.New("compose: invalid dimensions")
)

// Compositor 输出 RGBA：RGB 来自原图，alpha 等于遮罩
type Compositor interface {
	Name() string
	Composite(original *bitmap.Bitmap, mask *bitmap.Mask) (*bitmap.Bitmap, error)
}

type Preference string

const (
	PreferGraph Preference = "graph"
	PreferPixel Preference = "pixel"
)

// Select 启动时选择一次：混合滤镜可用时用滤镜图，并以逐像素合成兜底
func Select(reg *Registry, prefer Preference) Compositor {
	pixel := NewPixelCompositor()
	if prefer == PreferPixel {
		slog.Debug("compositor selected", "name", pixel.Name(), "reason", "preference")
		return pixel
	}
	if reg == nil || !reg.Has(BlendWithMask) {
		slog.Info("compositor selected", "name", pixel.Name(), "reason", "blend filter unavailable")
		return pixel
	}

	graph := NewGraphCompositor(reg)
	slog.Debug("compositor selected", "name", graph.Name(), "filter", reg.Describe(BlendWithMask))
	return WithFallback(graph, pixel)
}

type fallbackCompositor struct {
	primary   Compositor
	secondary Compositor
}

// WithFallback primary 失败时改用 secondary
func WithFallback(primary, secondary Compositor) Compositor {
	return &fallbackCompositor{primary: primary, secondary: secondary}
}

func (f *fallbackCompositor) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *fallbackCompositor) Composite(original *bitmap.Bitmap, mask *bitmap.Mask) (*bitmap.Bitmap, error) {
	out, err := f.primary.Composite(original, mask)
	if err == nil {
		return out, nil
	}
	slog.Warn("primary compositor failed, using fallback",
		"primary", f.primary.Name(), "fallback", f.secondary.Name(), "error", err)

	out, err2 := f.secondary.Composite(original, mask)
	if err2 != nil {
		return nil, fmt.Errorf("%w: %w; %w", ErrCompositeFailed, err, err2)
	}
	return out, nil
}

// fitMask 遮罩尺寸与原图不一致时先重采样
func fitMask(original *bitmap.Bitmap, mask *bitmap.Mask) (*bitmap.Mask, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	if mask.Width == original.Width && mask.Height == original.Height {
		return mask, nil
	}
	return Resample(mask, original.Width, original.Height)
}
