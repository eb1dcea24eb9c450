// Package config loads the coprocessor's startup configuration.
//
// The file is the FRC image's frc.json:
//
//	{
//	    "team": 2228,
//	    "ntmode": "client",
//	    "cameras": [
//	        {
//	            "name": "front",
//	            "path": "/dev/video0",
//	            "pixel format": "MJPEG",
//	            "width": 320,
//	            "height": 240,
//	            "fps": 30,
//	            "brightness": 30,
//	            "white balance": "auto",
//	            "exposure": 10,
//	            "properties": [{"name": "contrast", "value": 50}],
//	            "stream": {"properties": [{"name": "compression", "value": 30}]}
//	        }
//	    ]
//	}
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/frc2228/pigrip/internal/log"
	"github.com/spf13/viper"
)

// ErrConfig is wrapped by every load failure.
var ErrConfig = errors.New("config: invalid startup config")

// NTMode selects whether the coprocessor serves telemetry itself or pushes
// it to the robot controller.
type NTMode string

const (
	ModeClient NTMode = "client"
	ModeServer NTMode = "server"
)

// Property is one name/value camera or stream setting.
type Property struct {
	Name  string `mapstructure:"name" json:"name"`
	Value any    `mapstructure:"value" json:"value"`
}

// Int returns the value as an integer. JSON numbers, numeric strings and
// booleans are accepted.
func (p Property) Int() (int, bool) {
	switch v := p.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(math.Round(v)), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		return i, err == nil
	}
	return 0, false
}

// StreamConfig holds settings for the camera's raw stream.
type StreamConfig struct {
	Properties []Property `mapstructure:"properties" json:"properties"`
}

// CameraConfig is one entry of the cameras array.
type CameraConfig struct {
	Name        string `mapstructure:"name" json:"name"`
	Path        string `mapstructure:"path" json:"path"`
	PixelFormat string `mapstructure:"pixel format" json:"pixel_format,omitempty"`
	Width       int    `mapstructure:"width" json:"width,omitempty"`
	Height      int    `mapstructure:"height" json:"height,omitempty"`
	FPS         int    `mapstructure:"fps" json:"fps,omitempty"`

	// Brightness is nil when the file leaves it out. 0 is a valid setting.
	Brightness *int `mapstructure:"brightness" json:"brightness,omitempty"`

	// WhiteBalance and Exposure are "auto", "hold" or a numeric value.
	WhiteBalance string `mapstructure:"white balance" json:"white_balance,omitempty"`
	Exposure     string `mapstructure:"exposure" json:"exposure,omitempty"`

	Properties []Property    `mapstructure:"properties" json:"properties,omitempty"`
	Stream     *StreamConfig `mapstructure:"stream" json:"stream,omitempty"`
}

// Config is the parsed startup configuration.
type Config struct {
	File    string         `json:"file"`
	Team    int            `json:"team"`
	Mode    NTMode         `json:"ntmode"`
	Cameras []CameraConfig `json:"cameras"`
}

// Server reports whether telemetry is served locally.
func (c *Config) Server() bool {
	return c.Mode == ModeServer
}

// VisionCamera returns the camera that feeds the targeting pipeline.
// The first configured camera feeds targeting; the rest are only streamed.
func (c *Config) VisionCamera() (CameraConfig, bool) {
	if len(c.Cameras) == 0 {
		return CameraConfig{}, false
	}
	return c.Cameras[0], true
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: could not open %q: %v", ErrConfig, path, err)
	}
	return decode(v, path)
}

func decode(v *viper.Viper, path string) (*Config, error) {
	parseError := func(format string, args ...any) error {
		return fmt.Errorf("%w: in %q: %s", ErrConfig, path, fmt.Sprintf(format, args...))
	}

	cfg := &Config{File: path, Mode: ModeClient}

	if !v.IsSet("team") {
		return nil, parseError("could not read team number")
	}
	cfg.Team = v.GetInt("team")
	if cfg.Team <= 0 {
		return nil, parseError("team number must be positive, got %v", v.Get("team"))
	}

	if v.IsSet("ntmode") {
		switch mode := v.GetString("ntmode"); {
		case strings.EqualFold(mode, string(ModeClient)):
			cfg.Mode = ModeClient
		case strings.EqualFold(mode, string(ModeServer)):
			cfg.Mode = ModeServer
		default:
			log.Warn("could not understand ntmode value", "file", path, "ntmode", mode)
		}
	}

	if !v.IsSet("cameras") {
		return nil, parseError("could not read cameras")
	}
	if err := v.UnmarshalKey("cameras", &cfg.Cameras); err != nil {
		return nil, parseError("could not read cameras: %v", err)
	}

	for i, cam := range cfg.Cameras {
		if cam.Name == "" {
			return nil, parseError("camera %d: could not read camera name", i)
		}
		if cam.Path == "" {
			return nil, parseError("camera %q: could not read path", cam.Name)
		}
	}

	return cfg, nil
}
