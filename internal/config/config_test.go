package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sk2233/spinal/pose"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"LogLevel", cfg.LogLevel, "info"},
		{"Level", cfg.Level, zerolog.InfoLevel},
		{"LogFormat", cfg.LogFormat, "console"},
		{"Loop", cfg.Loop, "loop"},
		{"LoopMode", cfg.LoopMode, pose.Loop},
		{"Skin", cfg.Skin, ""},
		{"FPS", cfg.FPS, 30.0},
		{"Watch.Debounce", cfg.Watch.Debounce, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "log_level",
			envKey: "SPINAL_LOG_LEVEL",
			envVal: "debug",
			field:  func(c Config) any { return c.Level },
			want:   zerolog.DebugLevel,
		},
		{
			name:   "loop",
			envKey: "SPINAL_LOOP",
			envVal: "pingpong",
			field:  func(c Config) any { return c.LoopMode },
			want:   pose.PingPong,
		},
		{
			name:   "skin",
			envKey: "SPINAL_SKIN",
			envVal: "goblin",
			field:  func(c Config) any { return c.Skin },
			want:   "goblin",
		},
		{
			name:   "fps",
			envKey: "SPINAL_FPS",
			envVal: "60",
			field:  func(c Config) any { return c.FPS },
			want:   60.0,
		},
		{
			name:   "watch.debounce",
			envKey: "SPINAL_WATCH_DEBOUNCE",
			envVal: "250ms",
			field:  func(c Config) any { return c.Watch.Debounce },
			want:   250 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so SPINAL_* env vars map to config keys.
			viper.SetEnvPrefix("SPINAL")
			viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			viper.AutomaticEnv()

			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper()
	path := filepath.Join(t.TempDir(), ".spinal.yaml")
	content := "log_format: json\nloop: clamp\nwatch:\n  debounce: 1s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.LogFormat != "json" || cfg.LoopMode != pose.Clamp || cfg.Watch.Debounce != time.Second {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"log_level", "loud"},
		{"log_format", "xml"},
		{"loop", "bounce"},
		{"fps", 0},
		{"watch.debounce", -time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resetViper()
			viper.Set(tt.key, tt.value)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Load() error = %v, want an error naming %s", err, tt.key)
			}
		})
	}
}
