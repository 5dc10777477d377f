package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/service"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig string
	flagOutput string
	flagDebug  bool
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gifgrab <url>",
	Short: "Turn Twitter/X posts into GIFs",
	Long: `gifgrab downloads the media attached to a Twitter/X post and encodes it
as an animated GIF. It can also download YouTube videos and run as an HTTP service.`,
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              convertRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "Output directory (overrides OUTPUT_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(youtubeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagOutput != "" {
		cfg.Storage.OutputPath = flagOutput
	}

	level := slog.LevelWarn
	if flagDebug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return nil
}

// convertRun is the default command: gifgrab <url>
func convertRun(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(cfg.Storage.OutputPath, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	svcs := service.New(cfg, logger)
	artifact, err := svcs.GIF.Convert(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), artifact.Path)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
