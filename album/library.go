package album

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chaos-io/cutout/export"
	"github.com/segmentio/ksuid"
	_ "golang.org/x/image/webp"
)

var (
	ErrSaveFailed = errors.New("album: save failed")
	ErrNotFound   = errors.New("album: item not found")
)

type Item struct {
	ID        string
	Format    export.SaveFormat
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Library 以 <ksuid>.<ext> 形式保存在目录中
type Library struct {
	dir string
	mu  sync.Mutex
}

func NewLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create album dir: %w", err)
	}
	return &Library{dir: dir}, nil
}

func (l *Library) Dir() string {
	return l.dir
}

// Add 校验数据可解码且与格式一致后写入
func (l *Library) Add(data []byte, format export.SaveFormat) (Item, error) {
	if err := verify(data, format); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := ksuid.New()
	path := filepath.Join(l.dir, id.String()+"."+format.Extension())

	// 先写临时文件再改名，避免留下半个文件
	tmp, err := os.CreateTemp(l.dir, ".saving-*")
	if err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Item{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	slog.Debug("album item saved", "id", id, "format", format, "bytes", len(data))
	return Item{
		ID:        id.String(),
		Format:    format,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: id.Time(),
	}, nil
}

// Open 读取某个条目
func (l *Library) Open(id string) ([]byte, Item, error) {
	item, err := l.find(id)
	if err != nil {
		return nil, Item{}, err
	}
	data, err := os.ReadFile(item.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, Item{}, err
	}
	return data, item, nil
}

// List 按创建时间升序
func (l *Library) List() ([]Item, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read album dir: %w", err)
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		item, ok := l.parse(e.Name())
		if !ok {
			continue
		}
		if info, err := e.Info(); err == nil {
			item.Size = info.Size()
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// Sweep 删除创建时间早于 now-retention 的条目，返回删除数量
func (l *Library) Sweep(retention time.Duration, now time.Time) (int, error) {
	items, err := l.List()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-retention)
	removed := 0
	var errs []error
	for _, item := range items {
		if !item.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(item.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (l *Library) find(id string) (Item, error) {
	if _, err := ksuid.Parse(id); err != nil {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, f := range []export.SaveFormat{export.FormatPNG, export.FormatJPG, export.FormatWebP} {
		name := id + "." + f.Extension()
		if item, ok := l.parse(name); ok {
			if _, err := os.Stat(item.Path); err == nil {
				return item, nil
			}
		}
	}
	return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (l *Library) parse(name string) (Item, bool) {
	ext := filepath.Ext(name)
	id, err := ksuid.Parse(strings.TrimSuffix(name, ext))
	if err != nil {
		return Item{}, false
	}
	format, err := export.ParseSaveFormat(ext)
	if err != nil || ext == "" {
		return Item{}, false
	}
	return Item{
		ID:        id.String(),
		Format:    format,
		Path:      filepath.Join(l.dir, name),
		CreatedAt: id.Time(),
	}, true
}

func verify(data []byte, format export.SaveFormat) error {
	if len(data) == 0 {
		return errors.New("no image data")
	}
	_, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("verify %s: %w", format, err)
	}
	got, err := export.ParseSaveFormat(name)
	if err != nil || got != format {
		return fmt.Errorf("data is %s, expected %s", name, format)
	}
	return nil
}
