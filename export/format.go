package export

import (
	"fmt"
	"strings"
)

// SaveFormat 导出格式
type SaveFormat int

const (
	FormatJPG SaveFormat = iota + 1
	FormatPNG
	FormatWebP
)

// DefaultFormat 未指定时导出 PNG
const DefaultFormat = FormatPNG

func (f SaveFormat) String() string {
	switch f {
	case FormatJPG:
		return "JPG"
	case FormatPNG:
		return "PNG"
	case FormatWebP:
		return "WebP"
	default:
		return fmt.Sprintf("SaveFormat(%d)", int(f))
	}
}

// Extension 不带点的文件扩展名
func (f SaveFormat) Extension() string {
	switch f {
	case FormatJPG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	default:
		return ""
	}
}

func (f SaveFormat) ContentType() string {
	switch f {
	case FormatJPG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ParseSaveFormat 大小写不敏感，接受 jpeg，空字符串为默认格式
func ParseSaveFormat(s string) (SaveFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "":
		return DefaultFormat, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return DefaultFormat, fmt.Errorf("unknown save format %q", s)
	}
}

// FormatFromPath 按扩展名推断格式
func FormatFromPath(path string) (SaveFormat, bool) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 || i == len(path)-1 {
		return 0, false
	}
	f, err := ParseSaveFormat(path[i+1:])
	if err != nil {
		return 0, false
	}
	return f, true
}
