package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/capture"
	"github.com/Futsu-coder/Emotion-Detection/internal/config"
	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/model"
	"github.com/Futsu-coder/Emotion-Detection/internal/opencv"
	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
)

// printSink writes every result as one JSON line
type printSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (s *printSink) Publish(r pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enc.Encode(r)
}

func (s *printSink) Transition(session string, running bool) {
	fmt.Fprintf(os.Stderr, "session %s running=%v\n", session, running)
}

func main() {
	var (
		configPath string
		imagePath  string
		cycles     uint64
		timeout    time.Duration
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&imagePath, "image", "", "Image to classify (required)")
	flag.Uint64Var(&cycles, "cycles", 5, "Number of frame cycles to run")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	flag.Parse()

	if imagePath == "" {
		fmt.Fprintln(os.Stderr, "-image is required")
		os.Exit(2)
	}

	fmt.Fprintln(os.Stderr, "=== Still Image Emotion Test ===")

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	labels, err := model.LoadLabels(cfg.Model.LabelsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load labels: %v\n", err)
		os.Exit(1)
	}

	detector, err := opencv.NewCascadeDetector(cfg.Detector.CascadePath, cfg.Detector.ScaleFactor, cfg.Detector.MinNeighbors, cfg.Detector.MinSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load cascade: %v\n", err)
		os.Exit(1)
	}
	defer detector.Close()

	engine, err := opencv.NewONNXEngine(cfg.Model.Path, cfg.Model.Backend, cfg.Model.Target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load model: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	board := pipeline.NewBoard(cfg.Pipeline.StatusThrottle)
	controller, err := pipeline.NewController(pipeline.ControllerConfig{
		Cycle: pipeline.CycleConfig{
			MaxRegions:       cfg.Pipeline.MaxRegions,
			InferenceTimeout: cfg.Pipeline.InferenceTimeout,
		},
		TensorSize:      cfg.Pipeline.TensorSize,
		SmoothingWindow: cfg.Pipeline.SmoothingWindow,
	}, capture.NewStillSource(imagePath), detector, engine, labels, board, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create pipeline: %v\n", err)
		os.Exit(1)
	}
	controller.AddSink(&printSink{enc: json.NewEncoder(os.Stdout)})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start pipeline: %v\n", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
wait:
	for controller.Stats().Cycles < cycles {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "Timed out before all cycles ran")
			break wait
		case <-ticker.C:
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := controller.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stop pipeline: %v\n", err)
	}

	stats := controller.Stats()
	fmt.Fprintf(os.Stderr, "cycles=%d results=%d engine_failures=%d\n",
		stats.Cycles, stats.ResultsEmitted, stats.EngineFailures)
	for slot, window := range controller.Windows() {
		fmt.Fprintf(os.Stderr, "slot %d window %v\n", slot, window)
	}
}
