package rembg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaos-io/cutout/bitmap"
	"github.com/chaos-io/cutout/compose"
	"github.com/chaos-io/cutout/segment"
	"github.com/chaos-io/cutout/util"
)

var (
	ErrDecodeFailed       = errors.New("rembg: image could not be decoded")
	ErrSegmentationFailed = errors.New("rembg: segmentation failed")
	ErrCompositeFailed    = errors.New("rembg: composite failed")
)

type Remover interface {
	Remove(ctx context.Context, img *bitmap.Bitmap) (*bitmap.Bitmap, error)
}

// BackgroundRemover 抠图主流程
type BackgroundRemover struct {
	segmenter  segment.Segmenter
	compositor compose.Compositor
}

func NewBackgroundRemover(segmenter segment.Segmenter, compositor compose.Compositor) *BackgroundRemover {
	return &BackgroundRemover{
		segmenter:  segmenter,
		compositor: compositor,
	}
}

// Remove 返回透明背景的 RGBA 位图，方向为 Up，尺寸等于原图显示尺寸
func (r *BackgroundRemover) Remove(ctx context.Context, img *bitmap.Bitmap) (*bitmap.Bitmap, error) {
	defer util.Trace("remove background")()

	if img == nil {
		return nil, fmt.Errorf("%w: nil bitmap", ErrDecodeFailed)
	}
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	// 1. 方向归一化，之后 (0,0) 即左上角
	upright := bitmap.Normalize(img)
	slog.Debug("orientation normalized", "from", img.Orientation,
		"width", upright.Width, "height", upright.Height)

	// 2. 人像分割
	mask, err := r.segment(ctx, upright)
	if err != nil {
		slog.Error("segmentation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSegmentationFailed, err)
	}

	// 3. 遮罩重采样到原图尺寸
	scaled, err := compose.Resample(mask, upright.Width, upright.Height)
	if err != nil {
		slog.Error("segmentation failed", "stage", "resample", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSegmentationFailed, err)
	}

	// 4. 合成
	out, err := r.compositor.Composite(upright, scaled)
	if err == nil && out == nil {
		err = compose.ErrNoOutput
	}
	if err != nil {
		slog.Error("composite failed", "compositor", r.compositor.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCompositeFailed, err)
	}
	return out, nil
}

func (r *BackgroundRemover) segment(ctx context.Context, img *bitmap.Bitmap) (*bitmap.Mask, error) {
	defer util.Trace("segment")()

	mask, err := r.segmenter.Segment(ctx, img, segment.Options{Quality: segment.QualityAccurate})
	if err != nil {
		return nil, err
	}
	if mask == nil {
		return nil, errors.New("segmenter returned no mask")
	}
	slog.Debug("mask received", "width", mask.Width, "height", mask.Height)
	return mask, nil
}
