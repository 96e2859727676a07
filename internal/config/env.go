package config

import (
	"os"
	"strconv"
	"time"
)

// applyEnvOverrides lets deployment override file settings with EMOTION_* variables.
// Malformed numeric values are ignored.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("EMOTION_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("EMOTION_LOG_FORMAT"); val != "" {
		cfg.Log.Format = val
	}

	if val := os.Getenv("EMOTION_MAX_REGIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Pipeline.MaxRegions = n
		}
	}
	if val := os.Getenv("EMOTION_FRAME_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Pipeline.FrameInterval = d
		}
	}
	if val := os.Getenv("EMOTION_INFERENCE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Pipeline.InferenceTimeout = d
		}
	}
	if val := os.Getenv("EMOTION_AUTOSTART"); val != "" {
		cfg.Pipeline.Autostart = val == "true" || val == "1"
	}

	if val := os.Getenv("EMOTION_CAPTURE_SOURCE"); val != "" {
		cfg.Capture.Source = val
	}
	if val := os.Getenv("EMOTION_CAPTURE_DEVICE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Capture.DeviceID = n
		}
	}
	if val := os.Getenv("EMOTION_CAPTURE_IMAGE"); val != "" {
		cfg.Capture.ImagePath = val
	}

	if val := os.Getenv("EMOTION_CASCADE_PATH"); val != "" {
		cfg.Detector.CascadePath = val
	}
	if val := os.Getenv("EMOTION_MODEL_PATH"); val != "" {
		cfg.Model.Path = val
	}
	if val := os.Getenv("EMOTION_LABELS_PATH"); val != "" {
		cfg.Model.LabelsPath = val
	}

	if val := os.Getenv("EMOTION_DATA_DIR"); val != "" {
		cfg.State.DataDir = val
	}
	if val := os.Getenv("EMOTION_WEB_PORT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Web.Port = n
		}
	}
}
