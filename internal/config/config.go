// Package config holds typed application configuration with JSON overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the root configuration for the annotator.
type Config struct {
	Paths      PathConfig       `json:"paths"`
	Display    DisplayConfig    `json:"display"`
	Zoom       ZoomConfig       `json:"zoom"`
	Annotation AnnotationConfig `json:"annotation"`
}

// PathConfig locates the dataset and all output artifacts.
type PathConfig struct {
	DatasetDir      string `json:"dataset_dir"`
	OutputDir       string `json:"output_dir"`
	CropsDir        string `json:"crops_dir"`
	BackupsDir      string `json:"backups_dir"`
	AnnotationsFile string `json:"annotations_file"`
	LockFile        string `json:"lock_file"`
}

// DisplayConfig controls the fixed window and display-size reduction.
type DisplayConfig struct {
	WindowWidth  int `json:"window_width"`
	WindowHeight int `json:"window_height"`

	// Reduced display-size bounds used by the auto-frame math.
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`

	// Source images larger than this are downscaled before display.
	MaxSourceWidth  int `json:"max_source_width"`
	MaxSourceHeight int `json:"max_source_height"`

	DefaultBrightness float64 `json:"default_brightness"`
	DefaultContrast   float64 `json:"default_contrast"`
	DefaultRotation   float64 `json:"default_rotation"`
	BrightnessStep    float64 `json:"brightness_step"`
	ContrastStep      float64 `json:"contrast_step"`
	RotationStep      float64 `json:"rotation_step"`

	AutoZoomCoverage float64 `json:"auto_zoom_coverage"`
}

// ZoomConfig controls interactive zoom and pan stepping. ZoomStep is a
// multiplier applied per keypress.
type ZoomConfig struct {
	MinZoom  float64 `json:"min_zoom"`
	MaxZoom  float64 `json:"max_zoom"`
	ZoomStep float64 `json:"zoom_step"`
	PanStep  int     `json:"pan_step"`
}

// AnnotationConfig controls persistence cadence and overlay styling.
type AnnotationConfig struct {
	SaveInterval    int     `json:"save_interval"`
	MaxBackups      int     `json:"max_backups"`
	LockTimeoutSec  int     `json:"lock_timeout_sec"`
	SaveRetries     int     `json:"save_retries"`
	PolygonAlpha    float64 `json:"polygon_alpha"`
	BorderThickness int     `json:"border_thickness"`
}

// Default returns the configuration with all default values applied,
// rooted at the given dataset and output directories.
func Default(datasetDir, outputDir string) *Config {
	return &Config{
		Paths: PathConfig{
			DatasetDir:      datasetDir,
			OutputDir:       outputDir,
			CropsDir:        filepath.Join(outputDir, "crops"),
			BackupsDir:      filepath.Join(outputDir, "backups"),
			AnnotationsFile: filepath.Join(outputDir, "expiry_dates_all.json"),
			LockFile:        filepath.Join(outputDir, "expiry_dates_all.json.lock"),
		},
		Display: DisplayConfig{
			WindowWidth:       640,
			WindowHeight:      640,
			MaxWidth:          1200,
			MaxHeight:         800,
			MinWidth:          400,
			MinHeight:         300,
			MaxSourceWidth:    4000,
			MaxSourceHeight:   4000,
			DefaultBrightness: 0,
			DefaultContrast:   1.0,
			DefaultRotation:   0,
			BrightnessStep:    10,
			ContrastStep:      0.1,
			RotationStep:      5,
			AutoZoomCoverage:  0.6,
		},
		Zoom: ZoomConfig{
			MinZoom:  0.1,
			MaxZoom:  5.0,
			ZoomStep: 1.25,
			PanStep:  50,
		},
		Annotation: AnnotationConfig{
			SaveInterval:    5,
			MaxBackups:      10,
			LockTimeoutSec:  10,
			SaveRetries:     3,
			PolygonAlpha:    0.15,
			BorderThickness: 2,
		},
	}
}

// Load builds the default config and overlays values from a JSON file
// if one exists at path. A missing file is not an error.
func Load(path, datasetDir, outputDir string) (*Config, error) {
	cfg := Default(datasetDir, outputDir)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureDirs creates the output directory tree.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.CropsDir, c.Paths.BackupsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
