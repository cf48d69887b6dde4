// Package config loads gosubleq settings from YAML and builds the logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gosubleq/pkg/asm"
	"gosubleq/pkg/image"
	"gosubleq/pkg/vm"
	"gosubleq/pkg/word"
)

type Config struct {
	WordBits    int    `yaml:"word_bits"`
	ImageLimit  int64  `yaml:"image_limit"`
	MemoryCells int    `yaml:"memory_cells"`
	MaxSteps    int64  `yaml:"max_steps"` // 0 = unlimited
	Format      string `yaml:"format"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		WordBits:    64,
		ImageLimit:  65536,
		MemoryCells: vm.DefaultMemoryCells,
		MaxSteps:    10_000_000,
		Format:      string(image.FormatText),
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := word.Parse(c.WordBits); err != nil {
		errs = append(errs, fmt.Errorf("word_bits: %w", err))
	}
	if c.ImageLimit <= 0 {
		errs = append(errs, fmt.Errorf("image_limit must be positive, got %d", c.ImageLimit))
	}
	if c.MemoryCells <= 0 {
		errs = append(errs, fmt.Errorf("memory_cells must be positive, got %d", c.MemoryCells))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps))
	}
	if _, err := image.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if lf := strings.ToLower(c.LogFormat); lf != "text" && lf != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Width is WordBits as a cell width; call after Validate.
func (c Config) Width() word.Width {
	w, err := word.Parse(c.WordBits)
	if err != nil {
		return word.Default
	}
	return w
}

func (c Config) AsmOptions() asm.Options {
	return asm.Options{Width: c.Width(), ImageLimit: c.ImageLimit}
}

func (c Config) OutputFormat() image.Format {
	f, err := image.ParseFormat(c.Format)
	if err != nil {
		return image.FormatText
	}
	return f
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return vm.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q (want trace, debug, info, warn or error)", s)
}

// Logger builds the slog logger described by the config, writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == vm.LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if strings.ToLower(c.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
