package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/photomosaic/internal/sampler"
	"github.com/ivlev/photomosaic/internal/system"
)

type Config struct {
	Target        string   `yaml:"target"`
	Materials     []string `yaml:"materials"`
	Cols          int      `yaml:"cols"`
	Rows          int      `yaml:"rows"`
	BlockSize     int      `yaml:"block_size"`
	SampleWidth   int      `yaml:"sample_width"`
	SampleHeight  int      `yaml:"sample_height"`
	IncludeAlpha  bool     `yaml:"include_alpha"`
	Interpolation string   `yaml:"interpolation"`
	Workers       int      `yaml:"workers"`
	DPI           int      `yaml:"dpi"`
	CachePath     string   `yaml:"cache"`
	Output        string   `yaml:"output"`
	ShowStats     bool     `yaml:"show_stats"`
	BuildVersion  string   `yaml:"-"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Cols:          32,
		Rows:          32,
		BlockSize:     8,
		SampleWidth:   sampler.DefaultSize,
		SampleHeight:  sampler.DefaultSize,
		Interpolation: "bilinear",
		Workers:       system.DefaultWorkers(),
		DPI:           72,
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// MaxCanvasPixels bounds the target and sampling canvases. Grid settings
// may come from HTTP requests, so this caps what one run can allocate.
const MaxCanvasPixels = 1 << 24

// ValidateGrid checks the settings shared by one-shot runs and the server.
func (c *Config) ValidateGrid() error {
	var errs []error
	if c.Cols <= 0 || c.Rows <= 0 {
		errs = append(errs, fmt.Errorf("grid must be positive, got %dx%d", c.Cols, c.Rows))
	}
	if c.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block_size must be positive, got %d", c.BlockSize))
	}
	if c.Cols > 0 && c.Rows > 0 && c.BlockSize > 0 && !fitsCanvas(c.Cols, c.Rows, c.BlockSize) {
		errs = append(errs, fmt.Errorf("grid %dx%d of %d px blocks exceeds %d canvas pixels",
			c.Cols, c.Rows, c.BlockSize, MaxCanvasPixels))
	}
	if c.SampleWidth <= 0 || c.SampleHeight <= 0 {
		errs = append(errs, fmt.Errorf("sampling resolution must be positive, got %dx%d", c.SampleWidth, c.SampleHeight))
	} else if !fitsCanvas(c.SampleWidth, c.SampleHeight, 1) {
		errs = append(errs, fmt.Errorf("sampling resolution %dx%d exceeds %d canvas pixels",
			c.SampleWidth, c.SampleHeight, MaxCanvasPixels))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if _, err := sampler.NewInterpolator(c.Interpolation); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// fitsCanvas reports whether a (cols·size)×(rows·size) canvas stays within
// MaxCanvasPixels. All arguments must be positive; no product overflows.
func fitsCanvas(cols, rows, size int) bool {
	if cols > MaxCanvasPixels/size || rows > MaxCanvasPixels/size {
		return false
	}
	w, h := cols*size, rows*size
	return w <= MaxCanvasPixels/h
}

// Validate checks a configuration for a one-shot run.
func (c *Config) Validate() error {
	var errs []error
	if c.Target == "" {
		errs = append(errs, errors.New("target is required"))
	}
	if len(c.Materials) == 0 {
		errs = append(errs, errors.New("at least one material source is required"))
	}
	errs = append(errs, c.ValidateGrid())
	return errors.Join(errs...)
}
