package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chaos-io/cutout/album"
	"github.com/chaos-io/cutout/export"
	"github.com/chaos-io/cutout/rembg"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	engine        *gin.Engine
	processor     *rembg.Processor
	exporter      *export.Exporter
	saver         *album.Saver
	library       *album.Library
	defaultFormat export.SaveFormat
}

type Options struct {
	Processor     *rembg.Processor
	Exporter      *export.Exporter
	Library       *album.Library
	DefaultFormat export.SaveFormat
}

func New(opts Options) *Server {
	s := &Server{
		engine:        gin.New(),
		processor:     opts.Processor,
		exporter:      opts.Exporter,
		library:       opts.Library,
		defaultFormat: opts.DefaultFormat,
	}
	if s.defaultFormat == 0 {
		s.defaultFormat = export.DefaultFormat
	}
	if s.library != nil {
		s.saver = album.NewSaver(s.exporter, s.library)
	}

	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.healthz)

	v1 := s.engine.Group("/v1")
	v1.POST("/remove", s.remove)
	if s.library != nil {
		v1.POST("/album", s.saveToAlbum)
		v1.GET("/album", s.listAlbum)
		v1.GET("/album/:id", s.getAlbumItem)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 addr，ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.processor.Wait()
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
