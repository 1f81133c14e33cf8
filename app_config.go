// app_config.go - YAML configuration file with command-line overrides.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	defaultSampleRate   = 44100
	defaultDuration     = 3 * time.Minute
	defaultConfigPath   = "~/.config/intuition_tune/config.yaml"
	defaultFilenameTpl  = `{{ .Index | printf "%02d" }} - {{ .Title | default .Basename }}.wav`
	defaultConvertJobs  = 4
	maxConfigSampleRate = 192000
	minConfigSampleRate = 8000
)

// AppConfig mirrors config.yaml. Zero values fall back to the defaults.
type AppConfig struct {
	SampleRate      int           `yaml:"sample_rate"`
	Backend         string        `yaml:"backend"`
	Loop            string        `yaml:"loop"` // never, forever or times
	LoopCount       int           `yaml:"loop_count"`
	FadeIn          time.Duration `yaml:"fade_in"`
	FadeOut         time.Duration `yaml:"fade_out"`
	DefaultDuration time.Duration `yaml:"default_duration"`
	Silence         time.Duration `yaml:"silence"`
	Preamp          float64       `yaml:"preamp"`
	Resampler       string        `yaml:"resampler"`
	DepackDepth     int           `yaml:"depack_depth"`
	ZipMaxSize      int64         `yaml:"zip_max_size"`
	TempDir         string        `yaml:"temp_dir"`
	Codepage        string        `yaml:"codepage"`
	Layout          string        `yaml:"layout"`
	Template        string        `yaml:"template"`
	OutputDir       string        `yaml:"output_dir"`
	Jobs            int           `yaml:"jobs"`
	LogLevel        string        `yaml:"log_level"`
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		SampleRate:      defaultSampleRate,
		Backend:         "oto",
		Loop:            "never",
		DefaultDuration: defaultDuration,
		Preamp:          1,
		Resampler:       defaultResampler,
		DepackDepth:     defaultDepackDepth,
		ZipMaxSize:      defaultZipMaxDepacked,
		Codepage:        moduleCodepage,
		Layout:          "abc",
		Template:        defaultFilenameTpl,
		OutputDir:       ".",
		Jobs:            defaultConvertJobs,
	}
}

// loadAppConfig reads path over the defaults. A missing file at the
// default location is not an error; an explicit path must exist.
func loadAppConfig(path string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filepath.Base(expanded), err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	logger.Debug("config loaded", "path", expanded, "rate", cfg.SampleRate, "backend", cfg.Backend)
	return cfg, nil
}

// normalize restores defaults for zeroed fields and validates the rest.
func (c *AppConfig) normalize() error {
	def := defaultAppConfig()
	if c.SampleRate == 0 {
		c.SampleRate = def.SampleRate
	}
	if c.SampleRate < minConfigSampleRate || c.SampleRate > maxConfigSampleRate {
		return fmt.Errorf("config: sample_rate %d out of range", c.SampleRate)
	}
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Loop == "" {
		c.Loop = def.Loop
	}
	if _, err := c.LoopPolicy(); err != nil {
		return err
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = def.DefaultDuration
	}
	if c.Preamp <= 0 {
		c.Preamp = def.Preamp
	}
	if c.Resampler == "" {
		c.Resampler = def.Resampler
	}
	if _, err := resamplerType(c.Resampler); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.DepackDepth <= 0 {
		c.DepackDepth = def.DepackDepth
	}
	if c.ZipMaxSize <= 0 {
		c.ZipMaxSize = def.ZipMaxSize
	}
	if c.Codepage == "" {
		c.Codepage = def.Codepage
	}
	if _, err := codepageDecoder(c.Codepage); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := parseAYLayout(c.Layout); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Template == "" {
		c.Template = def.Template
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.Jobs <= 0 {
		c.Jobs = def.Jobs
	}
	return nil
}

// apply pushes process-wide settings into the package globals.
func (c *AppConfig) apply() {
	moduleCodepage = c.Codepage
	if c.LogLevel != "" {
		setLogLevel(c.LogLevel)
	}
}

func (c *AppConfig) LoopPolicy() (LoopPolicy, error) {
	switch c.Loop {
	case "never":
		return LoopNever, nil
	case "forever":
		return LoopForever, nil
	case "times":
		if c.LoopCount < 0 {
			return nil, fmt.Errorf("config: negative loop_count %d", c.LoopCount)
		}
		return LoopTimes(c.LoopCount), nil
	default:
		return nil, fmt.Errorf("config: unknown loop mode %q", c.Loop)
	}
}

func (c *AppConfig) RenderConfig() RenderConfig {
	layout, _ := parseAYLayout(c.Layout)
	return RenderConfig{SampleRate: c.SampleRate, Layout: layout}
}

// PipelineConfig builds the pipeline settings for one module. Modules
// without a known duration use DefaultDuration for the fade window.
func (c *AppConfig) PipelineConfig(info Information) PipelineConfig {
	duration := info.Duration()
	if duration <= 0 {
		duration = c.DefaultDuration
	}
	return PipelineConfig{
		SampleRate: c.SampleRate,
		Preamp:     c.Preamp,
		Silence:    c.Silence,
		Resampler:  c.Resampler,
		Fade:       FadeInfo{FadeIn: c.FadeIn, FadeOut: c.FadeOut, Duration: duration},
	}
}
