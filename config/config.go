package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chaos-io/cutout/compose"
	"github.com/chaos-io/cutout/export"
	"github.com/chaos-io/cutout/segment"
	"gopkg.in/yaml.v3"
)

const (
	SegmenterONNX   = "onnx"
	SegmenterRemote = "remote"
)

type Config struct {
	Log        Log        `yaml:"log"`
	Segmenter  Segmenter  `yaml:"segmenter"`
	Compositor Compositor `yaml:"compositor"`
	Export     Export     `yaml:"export"`
	Album      Album      `yaml:"album"`
	Server     Server     `yaml:"server"`
}

type Log struct {
	// Level debug|info|warn|error
	Level string `yaml:"level"`
	// Format text|json
	Format string `yaml:"format"`
}

type Segmenter struct {
	Kind   string `yaml:"kind"`
	ONNX   ONNX   `yaml:"onnx"`
	Remote Remote `yaml:"remote"`
}

type ONNX struct {
	LibraryPath string `yaml:"library_path"`
	ModelPath   string `yaml:"model_path"`
	InputSize   int    `yaml:"input_size"`
	InputName   string `yaml:"input_name"`
	OutputName  string `yaml:"output_name"`
	Threads     int    `yaml:"threads"`
}

type Remote struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Compositor struct {
	Prefer string `yaml:"prefer"`
}

type Export struct {
	Format      string `yaml:"format"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

type Album struct {
	Dir       string        `yaml:"dir"`
	Retention time.Duration `yaml:"retention"`
	// Sweep cron 表达式，为空则不清理
	Sweep string `yaml:"sweep"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	onnx := segment.DefaultONNXConfig()
	return &Config{
		Log: Log{Level: "info", Format: "text"},
		Segmenter: Segmenter{
			Kind: SegmenterONNX,
			ONNX: ONNX{
				ModelPath:  onnx.ModelPath,
				InputSize:  onnx.InputSize,
				InputName:  onnx.InputName,
				OutputName: onnx.OutputName,
			},
			Remote: Remote{
				BaseURL: "http://127.0.0.1:8188",
				Timeout: 60 * time.Second,
			},
		},
		Compositor: Compositor{Prefer: string(compose.PreferGraph)},
		Export: Export{
			Format:      export.DefaultFormat.String(),
			JPEGQuality: export.DefaultJPEGQuality,
		},
		Album: Album{
			Dir:       "./album",
			Retention: 7 * 24 * time.Hour,
			Sweep:     "@hourly",
		},
		Server: Server{Addr: ":8080"},
	}
}

// Load 读取 YAML 覆盖默认值，path 为空时只用默认值
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	switch c.Segmenter.Kind {
	case SegmenterONNX:
		if c.Segmenter.ONNX.ModelPath == "" {
			errs = append(errs, errors.New("segmenter.onnx.model_path is required"))
		}
		if c.Segmenter.ONNX.InputSize <= 0 {
			errs = append(errs, fmt.Errorf("segmenter.onnx.input_size must be positive, got %d", c.Segmenter.ONNX.InputSize))
		}
	case SegmenterRemote:
		if c.Segmenter.Remote.BaseURL == "" {
			errs = append(errs, errors.New("segmenter.remote.base_url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("segmenter.kind must be onnx or remote, got %q", c.Segmenter.Kind))
	}

	switch compose.Preference(c.Compositor.Prefer) {
	case compose.PreferGraph, compose.PreferPixel:
	default:
		errs = append(errs, fmt.Errorf("compositor.prefer must be graph or pixel, got %q", c.Compositor.Prefer))
	}

	if _, err := export.ParseSaveFormat(c.Export.Format); err != nil {
		errs = append(errs, fmt.Errorf("export.format: %w", err))
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("export.jpeg_quality must be in 1..100, got %d", c.Export.JPEGQuality))
	}

	if c.Album.Dir == "" {
		errs = append(errs, errors.New("album.dir is required"))
	}
	if c.Album.Retention < 0 {
		errs = append(errs, fmt.Errorf("album.retention must not be negative, got %s", c.Album.Retention))
	}

	return errors.Join(errs...)
}

func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func (o ONNX) SegmentConfig() segment.ONNXConfig {
	return segment.ONNXConfig{
		LibraryPath: o.LibraryPath,
		ModelPath:   o.ModelPath,
		InputSize:   o.InputSize,
		InputName:   o.InputName,
		OutputName:  o.OutputName,
		Threads:     o.Threads,
	}
}

func (r Remote) SegmentConfig() segment.RemoteConfig {
	return segment.RemoteConfig{BaseURL: r.BaseURL, Timeout: r.Timeout}
}

// SaveFormat Validate 之后调用
func (e Export) SaveFormat() export.SaveFormat {
	f, _ := export.ParseSaveFormat(e.Format)
	return f
}
