package album

import (
	"fmt"
	"log/slog"

	"github.com/chaos-io/cutout/bitmap"
	"github.com/chaos-io/cutout/export"
)

const (
	MsgConversionFailed = "format conversion failed"
	MsgSaved            = "saved successfully"
	msgSaveFailed       = "save failed: "
)

// Result Message 面向用户，Err 用于日志
type Result struct {
	Item    Item
	Message string
	Err     error
}

type Saver struct {
	exporter *export.Exporter
	library  *Library
}

func NewSaver(exporter *export.Exporter, library *Library) *Saver {
	return &Saver{exporter: exporter, library: library}
}

// Save 编码并保存到相册，三种结果对应三条提示
func (s *Saver) Save(img *bitmap.Bitmap, format export.SaveFormat) Result {
	if img == nil || img.Validate() != nil {
		return Result{Message: MsgConversionFailed, Err: fmt.Errorf("%w: no image", export.ErrEncodeFailed)}
	}

	data, used, err := s.exporter.Encode(img.NRGBA(), format)
	if err != nil {
		slog.Warn("export failed", "format", format, "error", err)
		return Result{Message: MsgConversionFailed, Err: err}
	}

	item, err := s.library.Add(data, used)
	if err != nil {
		slog.Warn("album save failed", "format", used, "error", err)
		return Result{Message: msgSaveFailed + err.Error(), Err: err}
	}

	slog.Info("album save done", "id", item.ID, "requested", format, "format", used)
	return Result{Item: item, Message: MsgSaved}
}
