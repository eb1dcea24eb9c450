package pigrip

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc2228/pigrip/internal/config"
	"github.com/frc2228/pigrip/pkg/camera"
)

func validConfig() Config {
	return Config{
		ConfigFile:    "/boot/frc.json",
		LogLevel:      "info",
		DashboardPort: config.DefaultDashboardPort,
		TelemetryPort: config.DefaultTelemetryPort,
		OverlayEvery:  1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"valid preset", func(c *Config) { c.Preset = "driver" }, ""},
		{"no config file", func(c *Config) { c.ConfigFile = "" }, "ConfigFile"},
		{"dashboard port", func(c *Config) { c.DashboardPort = 70000 }, "DashboardPort"},
		{"telemetry port", func(c *Config) { c.TelemetryPort = 0 }, "TelemetryPort"},
		{"negative overlay", func(c *Config) { c.OverlayEvery = -1 }, "OverlayEvery"},
		{"unknown preset", func(c *Config) { c.Preset = "sunny" }, "Preset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestDefaultConfig_UsesEnvironment(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "/tmp/frc.json")
	t.Setenv(config.EnvDashboardPort, "8080")

	cfg := DefaultConfig()
	assert.Equal(t, "/tmp/frc.json", cfg.ConfigFile)
	assert.Equal(t, 8080, cfg.DashboardPort)
	assert.Equal(t, config.DefaultTelemetryPort, cfg.TelemetryPort)
	assert.Equal(t, 1, cfg.OverlayEvery)
	assert.NoError(t, cfg.Validate())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.DashboardPort = -1
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestInit_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	serverFile := filepath.Join(dir, "frc.json")
	require.NoError(t, os.WriteFile(serverFile, []byte(`{
		"team": 2228,
		"ntmode": "server",
		"cameras": [{"name": "vision", "path": "/dev/video0"}]
	}`), 0o644))

	t.Run("missing file", func(t *testing.T) {
		cfg := validConfig()
		cfg.ConfigFile = filepath.Join(dir, "nope.json")
		app, err := New(cfg)
		require.NoError(t, err)
		assert.True(t, errors.Is(app.Init(), config.ErrConfig))
	})

	t.Run("server mode without dashboard", func(t *testing.T) {
		cfg := validConfig()
		cfg.ConfigFile = serverFile
		cfg.NoDashboard = true
		app, err := New(cfg)
		require.NoError(t, err)

		var cerr *ConfigError
		require.ErrorAs(t, app.Init(), &cerr)
		assert.Equal(t, "NoDashboard", cerr.Field)
	})
}

func TestRun_BeforeInit(t *testing.T) {
	app, err := New(validConfig())
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
	app.Shutdown()
}

func TestOverlayEvery(t *testing.T) {
	capped := camera.DefaultConfig()
	capped.StreamFPS = 10

	tests := []struct {
		name string
		flag int
		cam  camera.Config
		want int
	}{
		{"flag only", 2, camera.DefaultConfig(), 2},
		{"stream fps caps the overlay", 1, capped, 3},
		{"disabled stays disabled", 0, capped, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overlayEvery(tt.flag, tt.cam))
		})
	}
}
