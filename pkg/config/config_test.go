package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gosubleq/pkg/vm"
	"gosubleq/pkg/word"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
	if got := Defaults().Width(); got != word.W64 {
		t.Errorf("default width = %v; want 64-bit", got)
	}
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader("word_bits: 16\nmax_steps: 0\nformat: listing\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := Defaults()
	want.WordBits = 16
	want.MaxSteps = 0
	want.Format = "listing"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "wordbits: 8\n"},
		{"bad width", "word_bits: 12\n"},
		{"bad format", "format: hex\n"},
		{"bad level", "log_level: loud\n"},
		{"bad log format", "log_format: xml\n"},
		{"negative steps", "max_steps: -1\n"},
		{"zero memory", "memory_cells: 0\n"},
		{"not yaml", "word_bits: [\n"},
	}
	for _, tc := range tests {
		if _, err := Decode(strings.NewReader(tc.yaml)); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosubleq.yaml")
	if err := os.WriteFile(path, []byte("word_bits: 8\nimage_limit: 128\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.AsmOptions()
	if opts.Width != word.W8 || opts.ImageLimit != 128 {
		t.Errorf("AsmOptions() = %+v", opts)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.LogLevel = "trace"
	cfg.LogFormat = "json"
	log := cfg.Logger(&buf)

	if !log.Enabled(context.Background(), vm.LevelTrace) {
		t.Fatal("trace level should be enabled")
	}
	log.Log(context.Background(), vm.LevelTrace, "step", "pc", 3)
	if out := buf.String(); !strings.Contains(out, `"level":"TRACE"`) || !strings.Contains(out, `"pc":3`) {
		t.Errorf("unexpected log output %q", out)
	}

	cfg.LogLevel = "warn"
	if cfg.Logger(&buf).Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn")
	}
}
