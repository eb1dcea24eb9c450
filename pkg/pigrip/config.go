// Package pigrip wires the camera, vision pipeline, targeter, telemetry and
// dashboard into the coprocessor application.
package pigrip

import (
	"fmt"

	"github.com/frc2228/pigrip/internal/config"
	"github.com/frc2228/pigrip/pkg/camera"
)

// Config holds all configuration for the coprocessor application.
// Flag parsing is done in cmd/pigrip/main.go; this struct is data only.
type Config struct {
	// ConfigFile is the frc.json startup config.
	ConfigFile string

	// LogLevel is debug, info, warn or error.
	LogLevel string

	// DashboardPort serves the dashboard and, in server ntmode, the robot's
	// telemetry connection.
	DashboardPort int

	// TelemetryPort is the robot-side port dialled in client ntmode.
	TelemetryPort int

	// StaticDir, when set, is served at / by the dashboard.
	StaticDir string

	// Preset overrides the video mode from frc.json with a named preset.
	Preset string

	// OverlayEvery renders the driver overlay every Nth frame. 0 disables it.
	OverlayEvery int

	// NoDashboard disables the web server. Server ntmode requires it.
	NoDashboard bool
}

// DefaultConfig returns defaults with environment overrides applied.
func DefaultConfig() Config {
	return Config{
		ConfigFile:    config.ConfigFile(config.DefaultConfigFile),
		LogLevel:      config.LogLevel(),
		DashboardPort: config.DashboardPort(),
		TelemetryPort: config.TelemetryPort(),
		OverlayEvery:  1,
	}
}

// Validate checks the runtime settings. The frc.json contents are checked
// when the file is loaded.
func (c *Config) Validate() error {
	if c.ConfigFile == "" {
		return &ConfigError{Field: "ConfigFile", Message: "config file path is required"}
	}
	if c.DashboardPort <= 0 || c.DashboardPort > 65535 {
		return &ConfigError{Field: "DashboardPort", Message: fmt.Sprintf("dashboard port %d out of range", c.DashboardPort)}
	}
	if c.TelemetryPort <= 0 || c.TelemetryPort > 65535 {
		return &ConfigError{Field: "TelemetryPort", Message: fmt.Sprintf("telemetry port %d out of range", c.TelemetryPort)}
	}
	if c.OverlayEvery < 0 {
		return &ConfigError{Field: "OverlayEvery", Message: "overlay interval cannot be negative"}
	}
	if c.Preset != "" && camera.GetPreset(c.Preset) == nil {
		return &ConfigError{Field: "Preset", Message: fmt.Sprintf("unknown camera preset %q", c.Preset)}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
