package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/capture"
	"github.com/Futsu-coder/Emotion-Detection/internal/config"
	"github.com/Futsu-coder/Emotion-Detection/internal/health"
	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/model"
	"github.com/Futsu-coder/Emotion-Detection/internal/opencv"
	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/service"
	"github.com/Futsu-coder/Emotion-Detection/internal/state"
	"github.com/Futsu-coder/Emotion-Detection/internal/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (short)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Emotion Detection",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	if err := run(cfg, log); err != nil {
		log.Error("Fatal error", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	labels, err := model.LoadLabels(cfg.Model.LabelsPath)
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}
	log.Info("Loaded label table", "path", cfg.Model.LabelsPath, "labels", labels.Len())

	detector, err := opencv.NewCascadeDetector(
		cfg.Detector.CascadePath,
		cfg.Detector.ScaleFactor,
		cfg.Detector.MinNeighbors,
		cfg.Detector.MinSize,
	)
	if err != nil {
		return fmt.Errorf("failed to load face detector: %w", err)
	}
	defer detector.Close()

	engine, err := opencv.NewONNXEngine(cfg.Model.Path, cfg.Model.Backend, cfg.Model.Target)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer engine.Close()

	source := newSource(cfg.Capture, log)

	board := pipeline.NewBoard(cfg.Pipeline.StatusThrottle)
	controller, err := pipeline.NewController(pipeline.ControllerConfig{
		Cycle: pipeline.CycleConfig{
			MaxRegions:       cfg.Pipeline.MaxRegions,
			FrameInterval:    cfg.Pipeline.FrameInterval,
			InferenceTimeout: cfg.Pipeline.InferenceTimeout,
		},
		TensorSize:      cfg.Pipeline.TensorSize,
		SmoothingWindow: cfg.Pipeline.SmoothingWindow,
	}, source, detector, engine, labels, board, log)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	// Create service manager
	svcMgr := service.NewManager(log)

	// Create health check manager
	healthMgr := health.NewManager(log, svcMgr)
	assets := map[string]string{
		"cascade": cfg.Detector.CascadePath,
		"model":   cfg.Model.Path,
		"labels":  cfg.Model.LabelsPath,
	}
	if cfg.Capture.Source == config.CaptureSourceImage {
		assets["image"] = cfg.Capture.ImagePath
	}
	healthMgr.RegisterChecker(health.NewFileChecker("assets", assets))
	healthMgr.RegisterChecker(health.NewPipelineChecker(controller))

	server := web.NewServer(&cfg.Web, log)
	server.SetPipeline(controller)
	server.SetHealth(healthMgr)
	server.SetStatusReporter(svcMgr)
	controller.AddSink(server.Hub())

	// The recorder starts before the pipeline so an autostarted session is recorded
	if cfg.State.Enabled {
		db, err := state.NewDatabase(cfg.State.DatabasePath())
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		recorder := state.NewRecorder(db, state.RecorderConfig{
			QueueSize:     cfg.State.QueueSize,
			BatchSize:     cfg.State.BatchSize,
			FlushInterval: cfg.State.FlushInterval,
		}, log)
		controller.AddSink(recorder)
		server.SetSessionStore(db)
		healthMgr.RegisterChecker(health.NewDatabaseChecker(db.GetDB()))
		svcMgr.Register(recorder)
	} else {
		healthMgr.RegisterChecker(health.NewDatabaseChecker(nil))
	}

	svcMgr.Register(&pipeline.Lifecycle{Controller: controller, Autostart: cfg.Pipeline.Autostart})
	svcMgr.Register(server)

	if err := svcMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return svcMgr.Shutdown(shutdownCtx)
}

func newSource(cfg config.CaptureConfig, log *logger.Logger) pipeline.FrameSource {
	if cfg.Source == config.CaptureSourceImage {
		log.Info("Using still image source", "path", cfg.ImagePath)
		return capture.NewStillSource(cfg.ImagePath)
	}
	log.Info("Using camera source", "device", cfg.DeviceID)
	return opencv.NewCameraSource(cfg.DeviceID, cfg.Width, cfg.Height, log)
}
