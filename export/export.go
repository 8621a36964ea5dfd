package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
)

// ErrEncodeFailed 编码失败且没有可用的降级
var ErrEncodeFailed = errors.New("export: encode failed")

// Exporter 按格式选择编码器，WebP 不可用或失败时静默降级为 PNG
type Exporter struct {
	encoders map[SaveFormat]Encoder
	fallback Encoder
}

func NewExporter(jpegQuality int) *Exporter {
	e := &Exporter{
		encoders: make(map[SaveFormat]Encoder),
		fallback: PNGEncoder{},
	}
	e.Register(PNGEncoder{})
	e.Register(JPEGEncoder{Quality: jpegQuality})
	e.Register(WebPEncoder{})
	return e
}

// Register 替换某个格式的编码器
func (e *Exporter) Register(enc Encoder) {
	e.encoders[enc.Format()] = enc
}

// Unregister 移除某个格式的编码器
func (e *Exporter) Unregister(format SaveFormat) {
	delete(e.encoders, format)
}

// Encode 返回编码后的字节以及实际使用的格式
func (e *Exporter) Encode(img image.Image, format SaveFormat) ([]byte, SaveFormat, error) {
	if img == nil {
		return nil, format, fmt.Errorf("%w: nil image", ErrEncodeFailed)
	}

	enc, ok := e.encoders[format]
	if !ok || !enc.Available() {
		if format == FormatWebP {
			slog.Debug("webp encoder unavailable, falling back to png")
			return e.encodeFallback(img)
		}
		return nil, format, fmt.Errorf("%w: no encoder for %s", ErrEncodeFailed, format)
	}

	data, err := encode(enc, img)
	if err != nil {
		if format == FormatWebP {
			slog.Debug("webp encode failed, falling back to png", "error", err)
			return e.encodeFallback(img)
		}
		return nil, format, fmt.Errorf("%w: %s: %w", ErrEncodeFailed, format, err)
	}
	return data, format, nil
}

func (e *Exporter) encodeFallback(img image.Image) ([]byte, SaveFormat, error) {
	data, err := encode(e.fallback, img)
	if err != nil {
		return nil, e.fallback.Format(), fmt.Errorf("%w: %s: %w", ErrEncodeFailed, e.fallback.Format(), err)
	}
	return data, e.fallback.Format(), nil
}

func encode(enc Encoder, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("encoder produced no bytes")
	}
	return buf.Bytes(), nil
}
