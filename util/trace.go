package util

import (
	"log/slog"
	"time"
)

// Trace 记录耗时，用法: defer util.Trace("segment", "id", id)()
func Trace(name string, args ...any) func() {
	start := time.Now()
	return func() {
		slog.Debug(name+" done", append(args, "elapsed", time.Since(start))...)
	}
}
