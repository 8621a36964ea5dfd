package main

import (
	"fmt"
	"os"

	"github.com/chaos-io/cutout/album"
	"github.com/chaos-io/cutout/export"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/util"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the background of one image",
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().StringP("input", "i", "", "Input image path or http(s) URL")
	removeCmd.Flags().StringP("output", "o", "", "Output file")
	removeCmd.Flags().StringP("format", "f", "", "Output format: png, jpg or webp")
	removeCmd.Flags().Bool("save", false, "Also save the result to the album")
	_ = removeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	formatStr, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")

	if output == "" && !save {
		return fmt.Errorf("nothing to do: pass --output and/or --save")
	}
	format, err := resolveFormat(formatStr, output, cfg.Export.SaveFormat())
	if err != nil {
		return err
	}

	img, err := util.LoadBitmap(cmd.Context(), input)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}

	processor, closeFn, err := newProcessor(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := processor.Process(cmd.Context(), rembg.Request{Image: img})
	if err != nil {
		return err
	}
	if resp.Err != nil {
		return resp.Err
	}

	exporter := export.NewExporter(cfg.Export.JPEGQuality)
	if output != "" {
		data, used, err := exporter.Encode(resp.Result.NRGBA(), format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if used != format {
			cmd.Printf("%s unavailable, wrote %s\n", format, used)
		}
		cmd.Printf("wrote %s (%dx%d) in %s\n", output, resp.Result.Width, resp.Result.Height, resp.Elapsed)
	}

	if save {
		lib, err := album.NewLibrary(cfg.Album.Dir)
		if err != nil {
			return err
		}
		res := album.NewSaver(exporter, lib).Save(resp.Result, format)
		cmd.Println(res.Message)
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// resolveFormat 优先级：--format，输出文件扩展名，配置
func resolveFormat(flag, output string, fallback export.SaveFormat) (export.SaveFormat, error) {
	if flag != "" {
		return export.ParseSaveFormat(flag)
	}
	if f, ok := export.FormatFromPath(output); ok {
		return f, nil
	}
	return fallback, nil
}
