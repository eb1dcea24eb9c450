// pigrip - FRC vision coprocessor
// Finds the 2019 vision tape pair, publishes distance and offset to the
// robot, and streams an annotated overlay to the driver station.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frc2228/pigrip/internal/log"
	"github.com/frc2228/pigrip/pkg/camera"
	"github.com/frc2228/pigrip/pkg/pigrip"
)

func main() {
	cfg := parseFlags()
	log.Init(cfg.LogLevel)

	app, err := pigrip.New(cfg)
	if err != nil {
		fatal("configuration error", err)
	}

	if err := app.Init(); err != nil {
		fatal("initialization failed", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		app.Shutdown()
		fatal("runtime error", err)
	}
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}

// parseFlags parses command line flags and returns configuration.
// A bare first argument is the config file, as with the FRC image's
// runCamera script.
func parseFlags() pigrip.Config {
	cfg := pigrip.DefaultConfig()

	configFile := flag.String("config", cfg.ConfigFile, "Startup config file (overrides PIGRIP_CONFIG)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	port := flag.Int("port", cfg.DashboardPort, "Dashboard port")
	telemetryPort := flag.Int("telemetry-port", cfg.TelemetryPort, "Robot telemetry port (client ntmode)")
	static := flag.String("static", "", "Directory of dashboard files to serve at /")
	preset := flag.String("preset", "", fmt.Sprintf("Camera preset overriding the config file %v", camera.PresetNames()))
	overlayEvery := flag.Int("overlay-every", cfg.OverlayEvery, "Render the overlay every Nth frame (0 disables; a stream fps in the config file wins)")
	noDashboard := flag.Bool("no-dashboard", false, "Disable the web dashboard (client ntmode only)")
	flag.Parse()

	cfg.ConfigFile = *configFile
	if flag.NArg() > 0 {
		cfg.ConfigFile = flag.Arg(0)
	}
	cfg.LogLevel = *logLevel
	cfg.DashboardPort, cfg.TelemetryPort = *port, *telemetryPort
	cfg.StaticDir, cfg.Preset = *static, *preset
	cfg.OverlayEvery, cfg.NoDashboard = *overlayEvery, *noDashboard
	return cfg
}
