package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default runtime settings.
const (
	DefaultConfigFile    = "/boot/frc.json"
	DefaultLogLevel      = "info"
	DefaultDashboardPort = 1183
	DefaultTelemetryPort = 5800
)

// Environment overrides.
const (
	EnvConfigFile    = "PIGRIP_CONFIG"
	EnvLogLevel      = "PIGRIP_LOG_LEVEL"
	EnvDashboardPort = "PIGRIP_DASHBOARD_PORT"
	EnvTelemetryPort = "PIGRIP_TELEMETRY_PORT"
)

// ConfigFile returns the config path from PIGRIP_CONFIG.
// Falls back to the provided default if not set.
func ConfigFile(defaultPath string) string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	return defaultPath
}

// LogLevel returns the log level from PIGRIP_LOG_LEVEL or info.
func LogLevel() string {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		return lvl
	}
	return DefaultLogLevel
}

// DashboardPort returns the dashboard port from PIGRIP_DASHBOARD_PORT.
// Unparseable values fall back to the default.
func DashboardPort() int {
	return envPort(EnvDashboardPort, DefaultDashboardPort)
}

// TelemetryPort returns the robot-side telemetry port from
// PIGRIP_TELEMETRY_PORT.
func TelemetryPort() int {
	return envPort(EnvTelemetryPort, DefaultTelemetryPort)
}

func envPort(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 || port > 65535 {
		return def
	}
	return port
}

// RoboRIOAddress returns the robot controller's static field address for a
// team number, 10.TE.AM.2.
func RoboRIOAddress(team int) string {
	return fmt.Sprintf("10.%d.%d.2", team/100, team%100)
}

// TelemetryURL returns the websocket URL the coprocessor pushes targeting
// data to when running as a client.
func TelemetryURL(team, port int) string {
	return fmt.Sprintf("ws://%s:%d/ws/telemetry", RoboRIOAddress(team), port)
}
