package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sk2233/spinal/internal/config"
)

var rootCmd = &cobra.Command{
	Use:               "spinal",
	Short:             "Inspect and pose Spine skeletons",
	Long:              "Spinal decodes Spine 4.1 skeletons (.skel or .json) and atlases, and evaluates animation poses.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfg    config.Config
	logger = zerolog.Nop()
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .spinal.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console or json)")
	rootCmd.PersistentFlags().String("loop", "loop", "loop mode (loop, clamp or pingpong)")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("loop", rootCmd.PersistentFlags().Lookup("loop"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".spinal")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("SPINAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger = newLogger(cmd.ErrOrStderr(), cfg)
	return nil
}

func newLogger(w io.Writer, cfg config.Config) zerolog.Logger {
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(cfg.Level).With().Timestamp().Logger()
}
