package config

import (
	"fmt"
	"strings"
)

// Validate validates the configuration and reports every problem at once
func (c *Config) Validate() error {
	var errors []string

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, fmt.Sprintf("invalid log.level: %s (must be: debug, info, warn, error, fatal)", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log.format: %s (must be: text or json)", c.Log.Format))
	}

	if c.Pipeline.MaxRegions <= 0 {
		errors = append(errors, fmt.Sprintf("pipeline.max_regions must be > 0, got: %d", c.Pipeline.MaxRegions))
	}
	if c.Pipeline.SmoothingWindow <= 0 {
		errors = append(errors, fmt.Sprintf("pipeline.smoothing_window must be > 0, got: %d", c.Pipeline.SmoothingWindow))
	}
	if c.Pipeline.TensorSize <= 0 {
		errors = append(errors, fmt.Sprintf("pipeline.tensor_size must be > 0, got: %d", c.Pipeline.TensorSize))
	}
	if c.Pipeline.FrameInterval <= 0 {
		errors = append(errors, fmt.Sprintf("pipeline.frame_interval must be > 0, got: %v", c.Pipeline.FrameInterval))
	}
	if c.Pipeline.InferenceTimeout < 0 {
		errors = append(errors, fmt.Sprintf("pipeline.inference_timeout must be >= 0, got: %v", c.Pipeline.InferenceTimeout))
	}
	if c.Pipeline.StatusThrottle < 0 {
		errors = append(errors, fmt.Sprintf("pipeline.status_throttle must be >= 0, got: %v", c.Pipeline.StatusThrottle))
	}

	switch c.Capture.Source {
	case CaptureSourceCamera:
		if c.Capture.DeviceID < 0 {
			errors = append(errors, fmt.Sprintf("capture.device_id must be >= 0, got: %d", c.Capture.DeviceID))
		}
	case CaptureSourceImage:
		if c.Capture.ImagePath == "" {
			errors = append(errors, "capture.image_path is required when capture.source is image")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid capture.source: %s (must be: camera or image)", c.Capture.Source))
	}
	if c.Capture.Width < 0 || c.Capture.Height < 0 {
		errors = append(errors, fmt.Sprintf("capture.width and capture.height must be >= 0, got: %dx%d", c.Capture.Width, c.Capture.Height))
	}

	if c.Detector.CascadePath == "" {
		errors = append(errors, "detector.cascade_path is required")
	}
	if c.Detector.ScaleFactor <= 1 {
		errors = append(errors, fmt.Sprintf("detector.scale_factor must be > 1, got: %.2f", c.Detector.ScaleFactor))
	}
	if c.Detector.MinNeighbors < 0 {
		errors = append(errors, fmt.Sprintf("detector.min_neighbors must be >= 0, got: %d", c.Detector.MinNeighbors))
	}
	if c.Detector.MinSize < 0 {
		errors = append(errors, fmt.Sprintf("detector.min_size must be >= 0, got: %d", c.Detector.MinSize))
	}

	if c.Model.Path == "" {
		errors = append(errors, "model.path is required")
	}
	if c.Model.LabelsPath == "" {
		errors = append(errors, "model.labels_path is required")
	}

	if c.State.Enabled {
		if c.State.DataDir == "" {
			errors = append(errors, "state.data_dir is required when state is enabled")
		}
		if c.State.QueueSize <= 0 {
			errors = append(errors, fmt.Sprintf("state.queue_size must be > 0, got: %d", c.State.QueueSize))
		}
		if c.State.BatchSize <= 0 {
			errors = append(errors, fmt.Sprintf("state.batch_size must be > 0, got: %d", c.State.BatchSize))
		}
		if c.State.BatchSize > c.State.QueueSize {
			errors = append(errors, fmt.Sprintf("state.batch_size (%d) cannot be greater than queue_size (%d)", c.State.BatchSize, c.State.QueueSize))
		}
		if c.State.FlushInterval <= 0 {
			errors = append(errors, fmt.Sprintf("state.flush_interval must be > 0, got: %v", c.State.FlushInterval))
		}
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		errors = append(errors, fmt.Sprintf("web.port must be between 1 and 65535, got: %d", c.Web.Port))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
