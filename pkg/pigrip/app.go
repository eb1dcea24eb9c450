package pigrip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/frc2228/pigrip/internal/config"
	"github.com/frc2228/pigrip/internal/log"
	"github.com/frc2228/pigrip/pkg/camera"
	"github.com/frc2228/pigrip/pkg/targeting"
	"github.com/frc2228/pigrip/pkg/telemetry"
	"github.com/frc2228/pigrip/pkg/vision"
	"github.com/frc2228/pigrip/pkg/web"
	"github.com/frc2228/pigrip/pkg/worker"
)

// App is the coprocessor orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	frc    *config.Config
	log    *slog.Logger

	// Vision
	source        *camera.Source
	cameraManager *camera.Manager
	processor     *vision.Processor
	targeter      *targeting.Targeter

	// Driver cameras, streamed without processing
	streams []*driverCamera

	// Telemetry
	table     *telemetry.Table
	telemetry *telemetry.Client

	// Web dashboard
	webServer *web.Server

	worker *worker.Worker
}

// New creates a new application with the given configuration.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{
		config: cfg,
		log:    log.Component("pigrip"),
	}, nil
}

// Init loads the startup config and opens every component.
// Call this after New() and before Run().
func (a *App) Init() error {
	frc, err := config.Load(a.config.ConfigFile)
	if err != nil {
		return err
	}
	a.frc = frc
	a.log.Info("startup config loaded",
		"file", frc.File,
		"team", frc.Team,
		"ntmode", string(frc.Mode),
		"cameras", len(frc.Cameras),
	)

	if frc.Server() && a.config.NoDashboard {
		return &ConfigError{Field: "NoDashboard", Message: "server ntmode needs the dashboard server"}
	}

	cal := targeting.DefaultCalibration()
	if a.targeter, err = targeting.New(cal); err != nil {
		return fmt.Errorf("targeting: %w", err)
	}

	if err := a.initCamera(cal); err != nil {
		return err
	}

	a.table = telemetry.NewTable("")
	var sinks []worker.Sink

	if !frc.Server() {
		camCfg := a.source.Config()
		tc := telemetry.DefaultClientConfig(config.TelemetryURL(frc.Team, a.config.TelemetryPort), frc.Team)
		tc.Camera, tc.Width, tc.Height = camCfg.Name, camCfg.Width, camCfg.Height
		if a.telemetry, err = telemetry.NewClient(tc); err != nil {
			return err
		}
		sinks = append(sinks, a.telemetry)
	}

	opts := []worker.Option{}
	if !a.config.NoDashboard {
		a.openDriverCameras()

		camCfg := a.source.Config()
		a.webServer = web.NewServer(web.Config{
			Port:       a.config.DashboardPort,
			ServerMode: frc.Server(),
			StaticDir:  a.config.StaticDir,
			Width:      camCfg.Width,
			Height:     camCfg.Height,
		}, a.table, cal,
			web.WithCamera(a.cameraManager, camera.Capabilities()),
			web.WithStreams(a.streamNames()...),
		)
		sinks = append(sinks, a.webServer)
		opts = append(opts, worker.WithOverlay(a.webServer))
		for _, dc := range a.streams {
			dc.streamer = worker.NewStreamer(dc.name, dc.encoder, a.webServer, dc.every, worker.DefaultConfig().RetryDelay)
		}
	} else if len(a.frc.Cameras) > 1 {
		a.log.Warn("driver cameras need the dashboard, not streaming them", "cameras", len(a.frc.Cameras)-1)
	}
	opts = append(opts, worker.WithSinks(sinks...))

	wcfg := worker.DefaultConfig()
	wcfg.OverlayEvery = overlayEvery(a.config.OverlayEvery, a.source.Config())
	a.worker = worker.New(wcfg, a.processor, a.targeter, a.table, opts...)
	return nil
}

// overlayEvery applies the vision camera's stream fps cap unless the
// overlay is disabled.
func overlayEvery(every int, cam camera.Config) int {
	if every > 0 && cam.StreamFPS > 0 {
		return cam.StreamEvery()
	}
	return every
}

// initCamera opens the first configured camera, which drives targeting.
func (a *App) initCamera(cal targeting.Calibration) error {
	cam, ok := a.frc.VisionCamera()
	if !ok {
		return fmt.Errorf("%w: no cameras configured", config.ErrConfig)
	}

	camCfg := camera.FromFRC(cam)
	if a.config.Preset != "" {
		preset := camera.GetPreset(a.config.Preset)
		preset.Name, preset.Path = camCfg.Name, camCfg.Path
		camCfg = *preset
	}
	if camCfg.Width != cal.ImageWidth || camCfg.Height != cal.ImageHeight {
		a.log.Warn("camera resolution differs from calibration, distances will be off",
			"camera", fmt.Sprintf("%dx%d", camCfg.Width, camCfg.Height),
			"calibration", fmt.Sprintf("%dx%d", cal.ImageWidth, cal.ImageHeight),
		)
	}

	src, err := camera.Open(camCfg)
	if err != nil {
		return err
	}
	a.source = src

	a.cameraManager = camera.NewManager(camCfg)
	a.cameraManager.OnConfigChange = src.Apply

	a.processor = vision.NewProcessor(src,
		vision.NewPipeline(vision.DefaultPipelineConfig()),
		vision.NewRenderer(camCfg.Quality),
	)
	return nil
}

// driverCamera is a camera after the first, streamed to the dashboard as is.
type driverCamera struct {
	name     string
	every    int
	source   *camera.Source
	encoder  *vision.FrameEncoder
	streamer *worker.Streamer
}

// openDriverCameras opens every camera after the vision camera. A camera
// that fails to open is logged and left out.
func (a *App) openDriverCameras() {
	seen := map[string]bool{a.source.Config().Name: true}
	for _, cam := range a.frc.Cameras[1:] {
		if seen[cam.Name] {
			a.log.Warn("duplicate camera name, not streaming it", "camera", cam.Name)
			continue
		}
		seen[cam.Name] = true

		camCfg := camera.FromFRC(cam)
		src, err := camera.Open(camCfg)
		if err != nil {
			a.log.Warn("driver camera unavailable", "camera", cam.Name, "error", err)
			continue
		}
		a.streams = append(a.streams, &driverCamera{
			name:    cam.Name,
			every:   camCfg.StreamEvery(),
			source:  src,
			encoder: vision.NewFrameEncoder(src, camCfg.Quality),
		})
	}
}

func (a *App) streamNames() []string {
	names := make([]string, 0, len(a.streams))
	for _, dc := range a.streams {
		names = append(names, dc.name)
	}
	return names
}

// Run starts every component and blocks until ctx is cancelled or the
// camera runs out of frames.
func (a *App) Run(ctx context.Context) error {
	if a.worker == nil {
		return errors.New("pigrip: Run called before Init")
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.webServer != nil {
		g.Go(func() error {
			return a.webServer.Run(ctx)
		})
	}
	if a.telemetry != nil {
		g.Go(func() error {
			if err := a.telemetry.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	for _, dc := range a.streams {
		g.Go(func() error {
			err := dc.streamer.Run(ctx)
			if errors.Is(err, camera.ErrClosed) {
				// A driver camera ending does not stop targeting.
				a.log.Warn("driver camera stream ended", "camera", dc.name)
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		err := a.worker.Run(ctx)
		switch {
		case errors.Is(err, camera.ErrClosed):
			a.log.Info("camera stream ended")
			// Stop the other components too.
			return errStreamEnded
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	})

	err := g.Wait()
	stats := a.worker.Stats()
	a.log.Info("stopped",
		"frames", stats.Frames,
		"skipped", stats.Skipped,
		"state_changes", stats.StateChanges,
	)
	if errors.Is(err, errStreamEnded) {
		return nil
	}
	return err
}

var errStreamEnded = errors.New("pigrip: camera stream ended")

// Shutdown releases the camera and closes connections.
func (a *App) Shutdown() {
	if a.telemetry != nil {
		a.telemetry.Close()
	}
	for _, dc := range a.streams {
		dc.encoder.Close()
		dc.source.Close()
	}
	if a.processor != nil {
		a.processor.Close()
	}
	if a.source != nil {
		a.source.Close()
	}
}
