package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"timetable-parser/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "timetable-parser",
	Short:        "Parse class timetable images into JSON",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $CONFIG_PATH or ./config.yaml)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
