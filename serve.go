package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaos-io/cutout/album"
	"github.com/chaos-io/cutout/export"
	"github.com/chaos-io/cutout/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve background removal over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address, overrides server.addr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	processor, closeFn, err := newProcessor(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	lib, err := album.NewLibrary(cfg.Album.Dir)
	if err != nil {
		return err
	}
	if cfg.Album.Sweep != "" && cfg.Album.Retention > 0 {
		sweeper, err := album.NewSweeper(lib, cfg.Album.Retention, cfg.Album.Sweep)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer func() {
			<-sweeper.Stop().Done()
		}()
	}

	srv := server.New(server.Options{
		Processor:     processor,
		Exporter:      export.NewExporter(cfg.Export.JPEGQuality),
		Library:       lib,
		DefaultFormat: cfg.Export.SaveFormat(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, addr)
}
