// Package config supplies the settings snapshot a run starts from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mangamark/internal/compose"
	"mangamark/internal/convert"
	"mangamark/internal/placement"
	"mangamark/internal/processor"
)

// Config mirrors the settings file. Keys follow the names the settings file
// has always used.
type Config struct {
	MainFolder    string `yaml:"main_folder"`
	WatermarkFile string `yaml:"watermark_file"`
	Frequency     int    `yaml:"frequency"`
	SearchStep    int    `yaml:"search_step"`
	Threshold     int    `yaml:"threshold"`
	MaxSteps      int    `yaml:"max_steps"`
	CreateZip     bool   `yaml:"create_zip"`
	ArchiveExt    string `yaml:"archive_ext"`
	MagickPath    string `yaml:"magick_path"`
	ProcessType   string `yaml:"process_type"`
	AutoOrient    bool   `yaml:"auto_orient"`
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		Frequency:   10000,
		SearchStep:  300,
		Threshold:   25,
		MaxSteps:    10,
		ArchiveExt:  "zip",
		MagickPath:  convert.DefaultConverter,
		ProcessType: "raster",
	}
}

// DefaultPath is the settings file looked up when none is given.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "mangamark", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mangamark.yaml")
}

// Load reads the YAML file at path over the defaults. A missing file at the
// default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MANGAMARK_* environment variables.
func (c *Config) ApplyEnv() {
	c.MainFolder = getEnv("MANGAMARK_MAIN_FOLDER", c.MainFolder)
	c.WatermarkFile = getEnv("MANGAMARK_WATERMARK", c.WatermarkFile)
	c.Frequency = getEnvInt("MANGAMARK_FREQUENCY", c.Frequency)
	c.SearchStep = getEnvInt("MANGAMARK_SEARCH_STEP", c.SearchStep)
	c.Threshold = getEnvInt("MANGAMARK_THRESHOLD", c.Threshold)
	c.MaxSteps = getEnvInt("MANGAMARK_MAX_STEPS", c.MaxSteps)
	c.CreateZip = getEnvBool("MANGAMARK_CREATE_ZIP", c.CreateZip)
	c.ArchiveExt = getEnv("MANGAMARK_ARCHIVE_EXT", c.ArchiveExt)
	c.MagickPath = getEnv("MANGAMARK_MAGICK_PATH", c.MagickPath)
	c.ProcessType = getEnv("MANGAMARK_PROCESS_TYPE", c.ProcessType)
	c.AutoOrient = getEnvBool("MANGAMARK_AUTO_ORIENT", c.AutoOrient)
}

// Source parses ProcessType. "png" and "psd" are accepted for older files.
func (c *Config) Source() (processor.SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(c.ProcessType)) {
	case "", "raster", "png":
		return processor.SourceRaster, nil
	case "layered", "psd":
		return processor.SourceLayered, nil
	default:
		return 0, fmt.Errorf("process_type %q is not one of raster, layered", c.ProcessType)
	}
}

// Validate checks everything a run relies on before it starts.
func (c *Config) Validate() error {
	if c.MainFolder == "" {
		return errors.New("main folder is required")
	}
	if info, err := os.Stat(c.MainFolder); err != nil || !info.IsDir() {
		return fmt.Errorf("main folder %q is not a directory", c.MainFolder)
	}
	if c.WatermarkFile == "" {
		return errors.New("watermark file is required")
	}
	if info, err := os.Stat(c.WatermarkFile); err != nil || info.IsDir() {
		return fmt.Errorf("watermark file %q not found", c.WatermarkFile)
	}
	if !compose.SupportedWatermark(c.WatermarkFile) {
		return fmt.Errorf("watermark format %q is not supported", filepath.Ext(c.WatermarkFile))
	}
	if err := c.placement().Validate(); err != nil {
		return err
	}
	if strings.Trim(c.ArchiveExt, ". ") == "" {
		return errors.New("archive extension is required")
	}
	if _, err := c.Source(); err != nil {
		return err
	}
	return nil
}

// Snapshot freezes the config into the options a run works from.
func (c *Config) Snapshot() (processor.Options, error) {
	if err := c.Validate(); err != nil {
		return processor.Options{}, err
	}
	source, _ := c.Source()
	output := processor.OutputDirectory
	if c.CreateZip {
		output = processor.OutputArchive
	}
	return processor.Options{
		Root:       c.MainFolder,
		Watermark:  c.WatermarkFile,
		Converter:  c.MagickPath,
		Source:     source,
		Output:     output,
		ArchiveExt: strings.Trim(c.ArchiveExt, ". "),
		AutoOrient: c.AutoOrient,
		Placement:  c.placement(),
	}, nil
}

func (c *Config) placement() placement.Config {
	return placement.Config{
		Frequency:  c.Frequency,
		SearchStep: c.SearchStep,
		Threshold:  c.Threshold,
		MaxSteps:   c.MaxSteps,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
