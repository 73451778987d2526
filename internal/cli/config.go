package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/assetc"
	"github.com/gogpu/assetc/imageproc"
)

// Config is the compile configuration, read from a YAML file and
// overridden by command-line flags.
type Config struct {
	Workers      int    `yaml:"workers"`
	MaxDimension int    `yaml:"max_dimension"`
	CacheDir     string `yaml:"cache_dir"`
	Compression  string `yaml:"compression"`   // "bc3" | "none"
	NormalInvert string `yaml:"normal_invert"` // "" | "r" | "g" | "b" | "a"
	LogLevel     string `yaml:"log_level"`     // "debug" | "info" | "warn" | "error"
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Compression: "bc3",
		LogLevel:    "warn",
	}
}

// LoadConfig reads a YAML config file over the defaults.
// Unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts cfg to compiler options.
func (cfg Config) Options() ([]assetc.Option, error) {
	compression, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	invert, err := parseChannel(cfg.NormalInvert)
	if err != nil {
		return nil, err
	}
	if cfg.MaxDimension < 0 {
		return nil, fmt.Errorf("invalid max_dimension %d: must not be negative", cfg.MaxDimension)
	}
	return []assetc.Option{
		assetc.WithWorkers(cfg.Workers),
		assetc.WithMaxDimension(cfg.MaxDimension),
		assetc.WithCacheDir(cfg.CacheDir),
		assetc.WithCompression(compression),
		assetc.WithNormalInvert(invert),
	}, nil
}

// Level returns the configured log level.
func (cfg Config) Level() (slog.Level, error) {
	var l slog.Level
	if cfg.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	return l, nil
}

func parseCompression(s string) (imageproc.Compression, error) {
	switch strings.ToLower(s) {
	case "", "bc3", "dxt5":
		return imageproc.CompressionBC3, nil
	case "none", "rgba8":
		return imageproc.CompressionNone, nil
	default:
		return 0, fmt.Errorf("invalid compression %q: must be bc3 or none", s)
	}
}

func parseChannel(s string) (imageproc.Channel, error) {
	for c := imageproc.ChannelNone; c <= imageproc.ChannelA; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	if s == "" {
		return imageproc.ChannelNone, nil
	}
	return 0, fmt.Errorf("invalid channel %q: must be r, g, b or a", s)
}
