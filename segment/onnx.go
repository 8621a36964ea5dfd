package segment

import (
	"context"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/chaos-io/cutout/bitmap"
	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// U²-Net 系列模型使用的 ImageNet 均值与方差
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// ONNXConfig ONNX 分割模型配置
type ONNXConfig struct {
	// LibraryPath onnxruntime 动态库路径，为空时使用默认查找
	LibraryPath string
	// ModelPath .onnx 模型文件
	ModelPath string
	// InputSize 模型输入边长（正方形）
	InputSize int
	// InputName / OutputName 计算图中的张量名
	InputName  string
	OutputName string
	// Threads 算子内并行度，0 由 onnxruntime 决定
	Threads int
}

// DefaultONNXConfig u2netp.onnx 的默认配置
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		ModelPath:  "./models/u2netp.onnx",
		InputSize:  320,
		InputName:  "input.1",
		OutputName: "1959",
	}
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment 每个进程只初始化一次
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// ONNXSegmenter 通过 onnxruntime 运行显著性分割模型
// 会话与张量只分配一次并复用，Segment 调用串行执行
type ONNXSegmenter struct {
	cfg     ONNXConfig
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNXSegmenter 加载模型并预分配输入输出张量，使用完需要 Close
func NewONNXSegmenter(cfg ONNXConfig) (*ONNXSegmenter, error) {
	if cfg.InputSize <= 0 {
		return nil, errors.Errorf("invalid input size %d", cfg.InputSize)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "onnx model %s", cfg.ModelPath)
	}
	if cfg.LibraryPath != "" {
		if _, err := os.Stat(cfg.LibraryPath); err != nil {
			return nil, errors.Wrapf(err, "onnxruntime library %s", cfg.LibraryPath)
		}
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, errors.Wrap(err, "initialize onnxruntime environment")
	}

	n := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, n, n))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, n, n))
	if err != nil {
		_ = input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer func() {
		_ = options.Destroy()
	}()
	if cfg.Threads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.Threads); err != nil {
			slog.Warn("set onnx intra-op threads", "threads", cfg.Threads, "error", err)
		}
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, errors.Wrap(err, "create onnx session")
	}

	slog.Info("onnx segmenter ready", "model", cfg.ModelPath, "input_size", cfg.InputSize)
	return &ONNXSegmenter{cfg: cfg, session: session, input: input, output: output}, nil
}

// Segment 返回模型分辨率的遮罩，由调用方重采样
func (s *ONNXSegmenter) Segment(ctx context.Context, img *bitmap.Bitmap, opts Options) (*bitmap.Mask, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, errors.New("onnx segmenter is closed")
	}

	if err := fillInput(img.NRGBA(), s.input.GetData(), s.cfg.InputSize, opts.Quality); err != nil {
		return nil, errors.Wrap(err, "prepare input")
	}
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run inference")
	}
	return maskFromPrediction(s.output.GetData(), s.cfg.InputSize, s.cfg.InputSize)
}

// Close 释放会话与张量
func (s *ONNXSegmenter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.input != nil {
		_ = s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		_ = s.output.Destroy()
		s.output = nil
	}
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "destroy onnx session")
		}
	}
	return nil
}

func interpolation(q Quality) resize.InterpolationFunction {
	switch q {
	case QualityFast:
		return resize.NearestNeighbor
	case QualityBalanced:
		return resize.Bilinear
	default:
		return resize.Lanczos3
	}
}

// fillInput 缩放到 size x size，按 CHW 写入 dst
// 先除以缩放后图像的最大通道值，再做均值方差归一化
func fillInput(img image.Image, dst []float32, size int, q Quality) error {
	plane := size * size
	if len(dst) < plane*3 {
		return errors.Errorf("destination tensor holds %d floats, needs %d", len(dst), plane*3)
	}

	resized := resize.Resize(uint(size), uint(size), img, interpolation(q))
	b := resized.Bounds()

	var peak uint32 = 1
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			peak = max(peak, r>>8, g>>8, bl>>8)
		}
	}

	scale := float32(peak)
	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst[i] = (float32(r>>8)/scale - channelMean[0]) / channelStd[0]
			dst[plane+i] = (float32(g>>8)/scale - channelMean[1]) / channelStd[1]
			dst[2*plane+i] = (float32(bl>>8)/scale - channelMean[2]) / channelStd[2]
			i++
		}
	}
	return nil
}

// maskFromPrediction 对第一张预测图做 min-max 归一化到 0-255
// 预测值全部相同时按概率截断到 [0, 1]
func maskFromPrediction(pred []float32, width, height int) (*bitmap.Mask, error) {
	n := width * height
	if n <= 0 || len(pred) < n {
		return nil, errors.Errorf("prediction holds %d values, needs %d", len(pred), n)
	}

	lo, hi := math32.Inf(1), math32.Inf(-1)
	for _, v := range pred[:n] {
		if math32.IsNaN(v) {
			continue
		}
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}
	if math32.IsInf(lo, 1) {
		return nil, errors.New("prediction has no finite values")
	}

	m := bitmap.NewMask(width, height)
	span := hi - lo
	for i, v := range pred[:n] {
		var f float32
		switch {
		case math32.IsNaN(v):
			f = 0
		case span > 0:
			f = (v - lo) / span
		default:
			f = math32.Max(0, math32.Min(1, v))
		}
		m.Pix[i] = uint8(f*255 + 0.5)
	}
	return m, nil
}
