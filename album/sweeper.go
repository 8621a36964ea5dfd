package album

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper 按 cron 表达式定期清理过期条目
type Sweeper struct {
	cron      *cron.Cron
	library   *Library
	retention time.Duration
}

func NewSweeper(library *Library, retention time.Duration, spec string) (*Sweeper, error) {
	s := &Sweeper{
		cron:      cron.New(),
		library:   library,
		retention: retention,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule album sweep %q: %w", spec, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop 返回的 ctx 在进行中的清理结束后关闭
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) run() {
	n, err := s.library.Sweep(s.retention, time.Now())
	if err != nil {
		slog.Warn("album sweep failed", "removed", n, "error", err)
		return
	}
	if n > 0 {
		slog.Info("album sweep done", "removed", n, "retention", s.retention)
	}
}
