package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Capture  CaptureConfig  `yaml:"capture"`
	Detector DetectorConfig `yaml:"detector"`
	Model    ModelConfig    `yaml:"model"`
	State    StateConfig    `yaml:"state"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// PipelineConfig controls the frame cycle and smoothing
type PipelineConfig struct {
	MaxRegions       int           `yaml:"max_regions"`
	SmoothingWindow  int           `yaml:"smoothing_window"`
	TensorSize       int           `yaml:"tensor_size"`
	FrameInterval    time.Duration `yaml:"frame_interval"`
	InferenceTimeout time.Duration `yaml:"inference_timeout"` // 0 disables the per-region deadline
	StatusThrottle   time.Duration `yaml:"status_throttle"`
	Autostart        bool          `yaml:"autostart"`
}

// Capture sources
const (
	CaptureSourceCamera = "camera"
	CaptureSourceImage  = "image"
)

// CaptureConfig selects where frames come from
type CaptureConfig struct {
	Source    string `yaml:"source"`
	DeviceID  int    `yaml:"device_id"`
	ImagePath string `yaml:"image_path"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

// DetectorConfig configures the Haar cascade face detector
type DetectorConfig struct {
	CascadePath  string  `yaml:"cascade_path"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
}

// ModelConfig configures the classification model
type ModelConfig struct {
	Path       string `yaml:"path"`
	LabelsPath string `yaml:"labels_path"`
	Backend    string `yaml:"backend"`
	Target     string `yaml:"target"`
}

// StateConfig configures session persistence
type StateConfig struct {
	Enabled       bool          `yaml:"enabled"`
	DataDir       string        `yaml:"data_dir"`
	QueueSize     int           `yaml:"queue_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DatabasePath returns the sqlite file used for session history
func (c StateConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "db", "sessions.db")
}

// WebConfig contains web server configuration
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// getDefaultConfigPath returns the first existing well-known config path
func getDefaultConfigPath() string {
	paths := []string{
		"./config/config.dev.yaml",
		"./config/config.yaml",
		"../config/config.yaml",
		"/etc/emotion-detection/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return paths[0]
}

// setDefaults fills zero values. Values follow the browser prototype:
// three faces, a five-label window, 64x64 tensors and a 200ms status refresh.
func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Pipeline.MaxRegions == 0 {
		c.Pipeline.MaxRegions = 3
	}
	if c.Pipeline.SmoothingWindow == 0 {
		c.Pipeline.SmoothingWindow = 5
	}
	if c.Pipeline.TensorSize == 0 {
		c.Pipeline.TensorSize = 64
	}
	if c.Pipeline.FrameInterval == 0 {
		c.Pipeline.FrameInterval = 33 * time.Millisecond
	}
	if c.Pipeline.StatusThrottle == 0 {
		c.Pipeline.StatusThrottle = 200 * time.Millisecond
	}

	if c.Capture.Source == "" {
		c.Capture.Source = CaptureSourceCamera
	}

	if c.Detector.CascadePath == "" {
		c.Detector.CascadePath = "./models/haarcascade_frontalface_default.xml"
	}
	if c.Detector.ScaleFactor == 0 {
		c.Detector.ScaleFactor = 1.1
	}
	if c.Detector.MinNeighbors == 0 {
		c.Detector.MinNeighbors = 3
	}

	if c.Model.Path == "" {
		c.Model.Path = "./models/emotion_yolo.onnx"
	}
	if c.Model.LabelsPath == "" {
		c.Model.LabelsPath = "./models/classes.json"
	}
	if c.Model.Backend == "" {
		c.Model.Backend = "default"
	}
	if c.Model.Target == "" {
		c.Model.Target = "cpu"
	}

	if c.State.DataDir == "" {
		c.State.DataDir = "./data"
	}
	if c.State.QueueSize == 0 {
		c.State.QueueSize = 512
	}
	if c.State.BatchSize == 0 {
		c.State.BatchSize = 64
	}
	if c.State.FlushInterval == 0 {
		c.State.FlushInterval = time.Second
	}

	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
}
