package main

import (
	"fmt"

	"github.com/chaos-io/cutout/compose"
	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/segment"
)

func newSegmenter(c config.Segmenter) (segment.Segmenter, func(), error) {
	switch c.Kind {
	case config.SegmenterRemote:
		return segment.NewRemoteSegmenter(c.Remote.SegmentConfig()), func() {}, nil
	case config.SegmenterONNX:
		s, err := segment.NewONNXSegmenter(c.ONNX.SegmentConfig())
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			_ = s.Close()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown segmenter kind %q", c.Kind)
	}
}

// newProcessor 组装分割器、合成器与处理器，返回的 func 释放模型
func newProcessor(c *config.Config) (*rembg.Processor, func(), error) {
	seg, closeSeg, err := newSegmenter(c.Segmenter)
	if err != nil {
		return nil, nil, fmt.Errorf("create segmenter: %w", err)
	}
	comp := compose.Select(compose.NewDefaultRegistry(), compose.Preference(c.Compositor.Prefer))
	return rembg.NewProcessor(rembg.NewBackgroundRemover(seg, comp)), closeSeg, nil
}
