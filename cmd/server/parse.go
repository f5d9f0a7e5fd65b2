package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"timetable-parser/internal/config"
	"timetable-parser/internal/logging"
	"timetable-parser/internal/server"
	"timetable-parser/internal/storage"
	"timetable-parser/pkg"
)

var parseCmd = &cobra.Command{
	Use:   "parse <image>",
	Short: "Run the configured OCR engine on a local image and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		return parseImage(cmd.Context(), cfg, log, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func parseImage(ctx context.Context, cfg *config.Config, log zerolog.Logger, path string, out io.Writer) error {
	if !storage.HasAllowedExtension(path, cfg.Storage.AllowedSet()) {
		return fmt.Errorf("invalid file type: %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("open image: %s is a directory", path)
	}

	engine, closeEngine, err := server.NewEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeEngine()

	tt, err := engine.Parse(ctx, path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return pkg.Print(out, tt)
}
