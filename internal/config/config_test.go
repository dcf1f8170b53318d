package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mangamark/internal/processor"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	wm := filepath.Join(dir, "mark.png")
	if err := os.WriteFile(wm, []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Defaults()
	cfg.MainFolder = dir
	cfg.WatermarkFile = wm
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Frequency != 10000 || cfg.SearchStep != 300 || cfg.Threshold != 25 || cfg.MaxSteps != 10 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.CreateZip || cfg.MagickPath != "magick" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.AutoOrient {
		t.Fatal("pages must keep their stored geometry unless auto orient is asked for")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "frequency: 8000\nmax_steps: 0\ncreate_zip: true\nprocess_type: psd\nmagick_path: /opt/im/magick\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Frequency != 8000 || cfg.MaxSteps != 0 || !cfg.CreateZip || cfg.MagickPath != "/opt/im/magick" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SearchStep != 300 {
		t.Fatalf("unset key lost its default: %+v", cfg)
	}
	if src, err := cfg.Source(); err != nil || src != processor.SourceLayered {
		t.Fatalf("source = %v, %v", src, err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("frequency: [nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MANGAMARK_FREQUENCY", "5000")
	t.Setenv("MANGAMARK_CREATE_ZIP", "true")
	t.Setenv("MANGAMARK_THRESHOLD", "not-a-number")

	cfg := Defaults()
	cfg.ApplyEnv()
	if cfg.Frequency != 5000 || !cfg.CreateZip {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Threshold != 25 {
		t.Fatalf("invalid env value replaced default: %d", cfg.Threshold)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"frequency":    func(c *Config) { c.Frequency = 0 },
		"search step":  func(c *Config) { c.SearchStep = 0 },
		"threshold":    func(c *Config) { c.Threshold = -1 },
		"max steps":    func(c *Config) { c.MaxSteps = -1 },
		"no folder":    func(c *Config) { c.MainFolder = "" },
		"missing dir":  func(c *Config) { c.MainFolder = filepath.Join(c.MainFolder, "missing") },
		"no watermark": func(c *Config) { c.WatermarkFile = "" },
		"bad format":   func(c *Config) { c.WatermarkFile = c.MainFolder },
		"process type": func(c *Config) { c.ProcessType = "tiff" },
		"archive ext":  func(c *Config) { c.ArchiveExt = "." },
	}

	if err := validConfig(t).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for name, mutate := range cases {
		cfg := validConfig(t)
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestValidateWatermarkExtension(t *testing.T) {
	cfg := validConfig(t)
	gif := filepath.Join(cfg.MainFolder, "mark.gif")
	if err := os.WriteFile(gif, []byte("GIF89a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.WatermarkFile = gif
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unsupported watermark error")
	}
}

func TestSnapshot(t *testing.T) {
	cfg := validConfig(t)
	cfg.CreateZip = true
	cfg.ArchiveExt = ".cbz"
	cfg.MaxSteps = 4

	opts, err := cfg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if opts.Output != processor.OutputArchive || opts.ArchiveExt != "cbz" {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.Placement.MaxSteps != 4 || opts.Placement.Frequency != 10000 {
		t.Fatalf("placement = %+v", opts.Placement)
	}

	cfg.MaxSteps = 9
	if opts.Placement.MaxSteps != 4 {
		t.Fatal("snapshot changed after config mutation")
	}
}
