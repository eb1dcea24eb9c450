// Package camera provides runtime-configurable capture settings and the
// blocking frame source that feeds the vision worker.
package camera

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/frc2228/pigrip/internal/config"
	"github.com/frc2228/pigrip/internal/log"
)

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Device ===
	Name string `json:"name"`
	Path string `json:"path"` // Device node, index, file or stream URL

	// === Video mode ===
	PixelFormat string `json:"pixel_format"` // "MJPEG", "YUYV", "GREY" or empty for driver default
	Width       int    `json:"width"`        // Frame width in pixels
	Height      int    `json:"height"`       // Frame height in pixels
	FPS         int    `json:"fps"`          // Target FPS

	// === Image controls ===
	// Brightness is a percentage, 0-100. Negative leaves the driver value.
	Brightness int `json:"brightness"`

	// WhiteBalance is "auto", "hold" or a colour temperature in Kelvin.
	WhiteBalance string `json:"white_balance"`

	// Exposure is "auto", "hold" or a manual percentage 0-100.
	// Retro-reflective tape wants a very low manual exposure.
	Exposure string `json:"exposure"`

	// Raw V4L2 controls. -1 leaves the driver value.
	Contrast         int `json:"contrast"`
	Saturation       int `json:"saturation"`
	Sharpness        int `json:"sharpness"`
	Gain             int `json:"gain"`
	ExposureAbsolute int `json:"exposure_absolute"` // overrides Exposure when set

	// === Stream ===
	// Quality is the JPEG quality for streamed frames, 1-100.
	Quality int `json:"quality"`

	// StreamFPS caps the streamed frame rate. 0 streams every frame.
	StreamFPS int `json:"stream_fps"`
}

// Capture limits for the USB cameras used on the robot.
const (
	MinWidth          = 160
	MaxWidth          = 1920
	MinHeight         = 120
	MaxHeight         = 1080
	MaxFPS            = 120
	MinWhiteBalanceK  = 2000
	MaxWhiteBalanceK  = 10000
	SettingAuto       = "auto"
	SettingHold       = "hold"
	DefaultVisionPath = "/dev/video0"
	DriverDefault     = -1
)

var pixelFormats = map[string]string{
	"MJPEG":  "MJPG",
	"YUYV":   "YUYV",
	"GREY":   "GREY",
	"RGB565": "RGBP",
	"BGR":    "BGR3",
}

// DefaultConfig returns the configuration the targeting pipeline was tuned
// at: 320x240 MJPEG at 30 fps with a dark manual exposure.
func DefaultConfig() Config {
	return Config{
		Name:         "vision",
		Path:         DefaultVisionPath,
		PixelFormat:  "MJPEG",
		Width:        320,
		Height:       240,
		FPS:          30,
		Brightness:   30,
		WhiteBalance: SettingAuto,
		Exposure:     "10",

		Contrast:         DriverDefault,
		Saturation:       DriverDefault,
		Sharpness:        DriverDefault,
		Gain:             DriverDefault,
		ExposureAbsolute: DriverDefault,

		Quality: 80,
	}
}

// FromFRC converts a startup camera entry into a capture config. Fields the
// file leaves unset keep their defaults. Camera properties set the raw V4L2
// controls; stream properties set the JPEG quality and frame rate cap.
// Properties with no capture equivalent are logged and skipped.
func FromFRC(cam config.CameraConfig) Config {
	cfg := DefaultConfig()
	cfg.Name = cam.Name
	cfg.Path = cam.Path

	if cam.PixelFormat != "" {
		cfg.PixelFormat = strings.ToUpper(cam.PixelFormat)
	}
	if cam.Width > 0 {
		cfg.Width = cam.Width
	}
	if cam.Height > 0 {
		cfg.Height = cam.Height
	}
	if cam.FPS > 0 {
		cfg.FPS = cam.FPS
	}
	if cam.Brightness != nil {
		cfg.Brightness = *cam.Brightness
	}
	if cam.WhiteBalance != "" {
		cfg.WhiteBalance = strings.ToLower(cam.WhiteBalance)
	}
	if cam.Exposure != "" {
		cfg.Exposure = strings.ToLower(cam.Exposure)
	}

	for _, p := range cam.Properties {
		v, ok := p.Int()
		if !ok {
			log.Warn("camera property is not a number", "camera", cam.Name, "property", p.Name, "value", p.Value)
			continue
		}
		switch p.Name {
		case "contrast":
			cfg.Contrast = v
		case "saturation":
			cfg.Saturation = v
		case "sharpness":
			cfg.Sharpness = v
		case "gain":
			cfg.Gain = v
		case "exposure_absolute":
			cfg.ExposureAbsolute = v
		case "white_balance_temperature":
			cfg.WhiteBalance = strconv.Itoa(v)
		default:
			log.Debug("camera property not supported", "camera", cam.Name, "property", p.Name)
		}
	}

	if cam.Stream != nil {
		for _, p := range cam.Stream.Properties {
			v, ok := p.Int()
			if !ok {
				log.Warn("stream property is not a number", "camera", cam.Name, "property", p.Name, "value", p.Value)
				continue
			}
			switch p.Name {
			case "compression":
				// -1 is the stream server's "use default".
				if v > 0 {
					cfg.Quality = v
				}
			case "fps":
				cfg.StreamFPS = v
			default:
				log.Debug("stream property not supported", "camera", cam.Name, "property", p.Name)
			}
		}
	}
	return cfg
}

// StreamEvery returns N such that streaming every Nth captured frame stays
// at or under StreamFPS.
func (c *Config) StreamEvery() int {
	if c.StreamFPS <= 0 || c.StreamFPS >= c.FPS {
		return 1
	}
	return (c.FPS + c.StreamFPS - 1) / c.StreamFPS
}

// FourCC returns the capture codec for PixelFormat, or "" for the driver
// default.
func (c *Config) FourCC() string {
	return pixelFormats[strings.ToUpper(c.PixelFormat)]
}

// ManualExposure returns the manual exposure percentage, or false for
// "auto" and "hold".
func (c *Config) ManualExposure() (int, bool) {
	return manualValue(c.Exposure)
}

// ManualWhiteBalance returns the white balance temperature, or false for
// "auto" and "hold".
func (c *Config) ManualWhiteBalance() (int, bool) {
	return manualValue(c.WhiteBalance)
}

func manualValue(s string) (int, bool) {
	switch s {
	case "", SettingAuto, SettingHold:
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Path == "" {
		errors = append(errors, "path is required")
	}

	// Video mode
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.FPS < 1 || c.FPS > MaxFPS {
		errors = append(errors, fmt.Sprintf("fps must be between 1 and %d", MaxFPS))
	}
	if c.PixelFormat != "" && c.FourCC() == "" {
		errors = append(errors, "pixel_format must be MJPEG, YUYV, GREY, RGB565 or BGR")
	}

	// Image controls
	if c.Brightness > 100 {
		errors = append(errors, "brightness must be at most 100")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.StreamFPS < 0 || c.StreamFPS > MaxFPS {
		errors = append(errors, fmt.Sprintf("stream_fps must be between 0 and %d", MaxFPS))
	}
	for _, ctl := range []struct {
		name  string
		value int
	}{
		{"contrast", c.Contrast},
		{"saturation", c.Saturation},
		{"sharpness", c.Sharpness},
		{"gain", c.Gain},
		{"exposure_absolute", c.ExposureAbsolute},
	} {
		if ctl.value < DriverDefault {
			errors = append(errors, ctl.name+" must be -1 (driver default) or a control value")
		}
	}

	switch c.Exposure {
	case "", SettingAuto, SettingHold:
	default:
		if v, ok := c.ManualExposure(); !ok || v < 0 || v > 100 {
			errors = append(errors, "exposure must be auto, hold, or 0-100")
		}
	}

	switch c.WhiteBalance {
	case "", SettingAuto, SettingHold:
	default:
		if v, ok := c.ManualWhiteBalance(); !ok || v < MinWhiteBalanceK || v > MaxWhiteBalanceK {
			errors = append(errors, fmt.Sprintf("white_balance must be auto, hold, or %d-%d",
				MinWhiteBalanceK, MaxWhiteBalanceK))
		}
	}

	return errors
}

// Capabilities returns the capture limits for the API.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"min_width":     MinWidth,
		"max_width":     MaxWidth,
		"min_height":    MinHeight,
		"max_height":    MaxHeight,
		"max_fps":       MaxFPS,
		"pixel_formats": []string{"MJPEG", "YUYV", "GREY", "RGB565", "BGR"},
		"exposure":      []string{SettingAuto, SettingHold, "0-100"},
		"white_balance": []string{SettingAuto, SettingHold, fmt.Sprintf("%d-%d", MinWhiteBalanceK, MaxWhiteBalanceK)},
		"controls":      []string{"contrast", "saturation", "sharpness", "gain", "exposure_absolute"},
		"presets":       PresetNames(),
	}
}
