package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/proximity.report/internal/units"
)

// TuningConfig holds the startup tuning parameters. Every field is a
// pointer so a partial JSON file only overrides what it names; the Get*
// methods supply defaults for the rest.
type TuningConfig struct {
	// Capture params
	CameraDevice   *int     `json:"camera_device,omitempty"`
	ModelPath      *string  `json:"model_path,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	InputWidth     *int     `json:"input_width,omitempty"`
	InputHeight    *int     `json:"input_height,omitempty"`

	// Signal params
	ReadingInterval *string `json:"reading_interval,omitempty"` // duration string like "150ms"
	ChartInterval   *string `json:"chart_interval,omitempty"`   // duration string like "100ms"
	ChartCapacity   *int    `json:"chart_capacity,omitempty"`

	// Display params
	Units *string `json:"units,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ScoreThreshold != nil {
		if *c.ScoreThreshold < 0 || *c.ScoreThreshold > 1 {
			return fmt.Errorf("score_threshold must be between 0 and 1, got %f", *c.ScoreThreshold)
		}
	}

	if c.ReadingInterval != nil && *c.ReadingInterval != "" {
		if _, err := time.ParseDuration(*c.ReadingInterval); err != nil {
			return fmt.Errorf("invalid reading_interval '%s': %w", *c.ReadingInterval, err)
		}
	}

	if c.ChartInterval != nil && *c.ChartInterval != "" {
		if _, err := time.ParseDuration(*c.ChartInterval); err != nil {
			return fmt.Errorf("invalid chart_interval '%s': %w", *c.ChartInterval, err)
		}
	}

	if c.ChartCapacity != nil {
		if *c.ChartCapacity <= 0 {
			return fmt.Errorf("chart_capacity must be positive, got %d", *c.ChartCapacity)
		}
	}

	if c.InputWidth != nil && *c.InputWidth <= 0 {
		return fmt.Errorf("input_width must be positive, got %d", *c.InputWidth)
	}
	if c.InputHeight != nil && *c.InputHeight <= 0 {
		return fmt.Errorf("input_height must be positive, got %d", *c.InputHeight)
	}

	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("invalid units %q, must be one of: %s", *c.Units, units.GetValidUnitsString())
	}

	return nil
}

// GetCameraDevice returns the camera device ID or the default.
func (c *TuningConfig) GetCameraDevice() int {
	if c.CameraDevice == nil {
		return 0 // default
	}
	return *c.CameraDevice
}

// GetModelPath returns the face detection model path or the default.
func (c *TuningConfig) GetModelPath() string {
	if c.ModelPath == nil || *c.ModelPath == "" {
		return "models/face_detection_yunet.onnx" // default
	}
	return *c.ModelPath
}

// GetScoreThreshold returns the detection score threshold or the default.
func (c *TuningConfig) GetScoreThreshold() float64 {
	if c.ScoreThreshold == nil {
		return 0.5 // default
	}
	return *c.ScoreThreshold
}

// GetInputWidth returns the detector input width or the default.
func (c *TuningConfig) GetInputWidth() int {
	if c.InputWidth == nil {
		return 320 // default
	}
	return *c.InputWidth
}

// GetInputHeight returns the detector input height or the default.
func (c *TuningConfig) GetInputHeight() int {
	if c.InputHeight == nil {
		return 320 // default
	}
	return *c.InputHeight
}

// GetReadingInterval parses and returns the ReadingInterval as a time.Duration.
func (c *TuningConfig) GetReadingInterval() time.Duration {
	if c.ReadingInterval == nil || *c.ReadingInterval == "" {
		return 150 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.ReadingInterval)
	if err != nil {
		return 150 * time.Millisecond // default on parse error
	}
	return d
}

// GetChartInterval parses and returns the ChartInterval as a time.Duration.
func (c *TuningConfig) GetChartInterval() time.Duration {
	if c.ChartInterval == nil || *c.ChartInterval == "" {
		return 100 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.ChartInterval)
	if err != nil {
		return 100 * time.Millisecond // default on parse error
	}
	return d
}

// GetChartCapacity returns the rolling chart window size or the default.
func (c *TuningConfig) GetChartCapacity() int {
	if c.ChartCapacity == nil {
		return 120 // default
	}
	return *c.ChartCapacity
}

// GetUnits returns the display units or the default.
func (c *TuningConfig) GetUnits() string {
	if c.Units == nil || *c.Units == "" {
		return units.CM // default
	}
	return *c.Units
}
