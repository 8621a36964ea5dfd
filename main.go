package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/chaos-io/cutout/config"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "cutout",
	Short:         "Remove the background of a person photo",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		return setupLogger(c.Log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file")
}

// setupLogger 按配置安装默认 slog handler
func setupLogger(l config.Log) error {
	level, err := l.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(l.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("cutout failed", "error", err)
		os.Exit(1)
	}
}
