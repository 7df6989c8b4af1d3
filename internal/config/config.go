package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sk2233/spinal/pose"
)

// WatchConfig holds settings of the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config holds the runtime configuration of the spinal CLI.
// Values are populated from .spinal.yaml, SPINAL_* env vars, and CLI flags.
type Config struct {
	LogLevel  string      `mapstructure:"log_level"`
	LogFormat string      `mapstructure:"log_format"`
	Loop      string      `mapstructure:"loop"`
	Skin      string      `mapstructure:"skin"`
	FPS       float64     `mapstructure:"fps"`
	Watch     WatchConfig `mapstructure:"watch"`

	// 校验后的值
	Level    zerolog.Level `mapstructure:"-"`
	LoopMode pose.LoopMode `mapstructure:"-"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")
	viper.SetDefault("loop", "loop")
	viper.SetDefault("skin", "")
	viper.SetDefault("fps", 30)
	viper.SetDefault("watch.debounce", 100*time.Millisecond)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	var err error
	if cfg.Level, err = zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("log_level: %w", err)
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("log_format: unknown format %q", cfg.LogFormat)
	}
	if cfg.LoopMode, err = pose.ParseLoopMode(cfg.Loop); err != nil {
		return Config{}, fmt.Errorf("loop: %w", err)
	}
	if cfg.FPS <= 0 {
		return Config{}, fmt.Errorf("fps: must be positive, got %v", cfg.FPS)
	}
	if cfg.Watch.Debounce < 0 {
		return Config{}, fmt.Errorf("watch.debounce: must not be negative, got %v", cfg.Watch.Debounce)
	}
	return cfg, nil
}
