package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetReadingInterval(); got != 150*time.Millisecond {
		t.Errorf("GetReadingInterval() = %v, want 150ms", got)
	}
	if got := cfg.GetChartInterval(); got != 100*time.Millisecond {
		t.Errorf("GetChartInterval() = %v, want 100ms", got)
	}
	if got := cfg.GetChartCapacity(); got != 120 {
		t.Errorf("GetChartCapacity() = %d, want 120", got)
	}
	if got := cfg.GetCameraDevice(); got != 0 {
		t.Errorf("GetCameraDevice() = %d, want 0", got)
	}
	if got := cfg.GetScoreThreshold(); got != 0.5 {
		t.Errorf("GetScoreThreshold() = %v, want 0.5", got)
	}
	if got := cfg.GetInputWidth(); got != 320 {
		t.Errorf("GetInputWidth() = %d, want 320", got)
	}
	if got := cfg.GetUnits(); got != "cm" {
		t.Errorf("GetUnits() = %q, want cm", got)
	}
	if got := cfg.GetModelPath(); got != "models/face_detection_yunet.onnx" {
		t.Errorf("GetModelPath() = %q", got)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"reading_interval": "200ms", "units": "in"}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if got := cfg.GetReadingInterval(); got != 200*time.Millisecond {
		t.Errorf("GetReadingInterval() = %v, want 200ms", got)
	}
	if got := cfg.GetUnits(); got != "in" {
		t.Errorf("GetUnits() = %q, want in", got)
	}
	// Unset fields fall back to defaults.
	if got := cfg.GetChartInterval(); got != 100*time.Millisecond {
		t.Errorf("GetChartInterval() = %v, want default 100ms", got)
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("LoadTuningConfig accepted a non-.json file")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"reading_interval": `)
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("LoadTuningConfig accepted malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"valid full config", `{"camera_device": 1, "score_threshold": 0.7, "chart_capacity": 60, "units": "m"}`, false},
		{"score threshold too high", `{"score_threshold": 1.5}`, true},
		{"score threshold negative", `{"score_threshold": -0.1}`, true},
		{"bad reading interval", `{"reading_interval": "fast"}`, true},
		{"bad chart interval", `{"chart_interval": "soon"}`, true},
		{"zero chart capacity", `{"chart_capacity": 0}`, true},
		{"negative input width", `{"input_width": -320}`, true},
		{"unknown units", `{"units": "ft"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.json)
			_, err := LoadTuningConfig(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadTuningConfig error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
