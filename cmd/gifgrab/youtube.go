package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iconidentify/gifgrab/internal/service"
)

var (
	flagQuality string
	flagFormat  string
)

var youtubeCmd = &cobra.Command{
	Use:   "youtube <url>",
	Short: "Download a YouTube video",
	Args:  cobra.ExactArgs(1),
	RunE:  youtubeRun,
}

func init() {
	youtubeCmd.Flags().StringVarP(&flagQuality, "quality", "q", service.QualityBest, "Video quality: best | medium | worst")
	youtubeCmd.Flags().StringVarP(&flagFormat, "format", "f", service.DefaultContainer, "Container format, e.g. mp4 or webm")
}

func youtubeRun(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(cfg.Storage.OutputPath, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	svcs := service.New(cfg, logger)
	file, err := svcs.YouTube.Download(commandContext(cmd), service.VideoDownloadRequest{
		URL:     args[0],
		Quality: flagQuality,
		Format:  flagFormat,
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), file.Path)
	return nil
}
