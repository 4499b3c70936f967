package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ironsheep/image-scanner/internal/camera"
	"github.com/ironsheep/image-scanner/internal/config"
	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/imaging"
	"github.com/ironsheep/image-scanner/internal/logging"
	"github.com/ironsheep/image-scanner/internal/ocr"
	"github.com/ironsheep/image-scanner/internal/scanner"
)

// setup loads the configuration and builds the stderr logger.
func setup() (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.NoColor)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLoader(cfg config.ModelConfig) detection.Loader {
	if cfg.Backend == config.BackendTesseract {
		return ocr.NewLoader(cfg.Language, cfg.TessdataPrefix)
	}
	return detection.NewRemoteLoader(cfg.URL, cfg.Timeout)
}

func newCamera(cfg config.CameraConfig, logger *slog.Logger) *camera.Camera {
	constraints := camera.DefaultConstraints()
	if cfg.FacingMode != "" {
		constraints.FacingMode = cfg.FacingMode
	}

	var dev camera.Device
	if cfg.SnapshotURL != "" {
		dev = camera.NewSnapshotDevice(cfg.SnapshotURL, cfg.Timeout)
	}
	return camera.New(dev, constraints, logger)
}

func newStyle(cfg config.RenderConfig) (imaging.Style, error) {
	style, err := imaging.StyleFromHex(cfg.Stroke, cfg.Tag, cfg.Text, cfg.ColorByClass)
	if err != nil {
		return imaging.Style{}, fmt.Errorf("render: %w", err)
	}
	return style, nil
}

// newApp builds the scanner controller and starts loading the model in the
// background. The status line reports progress.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*scanner.App, error) {
	style, err := newStyle(cfg.Render)
	if err != nil {
		return nil, err
	}

	detector := detection.NewDetector(newLoader(cfg.Model), logger)
	app := scanner.New(detector, newCamera(cfg.Camera, logger), scanner.Options{
		Style:  style,
		Logger: logger,
	})

	go func() {
		if err := app.LoadModel(ctx); err != nil {
			logger.Warn("scanner running without a model", "error", err)
		}
	}()
	return app, nil
}
