package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/frc2228/pigrip/internal/log"
	"gocv.io/x/gocv"
)

var (
	// ErrClosed is returned once the source is closed or a file source has
	// reached its end.
	ErrClosed = errors.New("camera: source closed")

	// ErrEmptyFrame is returned when the device produced no image. It is
	// transient; the next Read may succeed.
	ErrEmptyFrame = errors.New("camera: empty frame")
)

// Source is one open capture device.
type Source struct {
	mu     sync.Mutex
	cfg    Config
	cap    *gocv.VideoCapture
	file   bool
	closed bool
}

// Open opens the device named by cfg.Path and applies the video mode.
// A path that exists on disk and is not a device node is read as a file;
// a bare number is a device index; anything else is handed to OpenCV as a
// device path or stream URL.
func Open(cfg Config) (*Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera %q: invalid config: %v", cfg.Name, errs)
	}

	var (
		capture *gocv.VideoCapture
		err     error
		file    bool
	)
	switch {
	case isIndex(cfg.Path):
		id, _ := strconv.Atoi(cfg.Path)
		capture, err = gocv.VideoCaptureDevice(id)
	case isRegularFile(cfg.Path):
		file = true
		capture, err = gocv.VideoCaptureFile(cfg.Path)
	default:
		capture, err = gocv.OpenVideoCapture(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("camera %q: open %s: %w", cfg.Name, cfg.Path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %q: %s did not open", cfg.Name, cfg.Path)
	}

	s := &Source{cfg: cfg, cap: capture, file: file}
	if !file {
		s.apply(cfg)
	}

	log.Info("camera opened",
		"name", cfg.Name,
		"path", cfg.Path,
		"width", cfg.Width,
		"height", cfg.Height,
		"fps", cfg.FPS,
		"file", file,
	)
	return s, nil
}

// Config returns the configuration last applied.
func (s *Source) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Apply pushes a new configuration to the open device. Device path changes
// need a reopen and are rejected.
func (s *Source) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if cfg.Path != s.cfg.Path {
		return fmt.Errorf("camera %q: path change %s -> %s requires restart", s.cfg.Name, s.cfg.Path, cfg.Path)
	}
	if !s.file {
		s.apply(cfg)
	}
	s.cfg = cfg
	return nil
}

// apply sets capture properties. Drivers silently ignore properties they
// do not support, so nothing here can fail.
func (s *Source) apply(cfg Config) {
	if cc := cfg.FourCC(); cc != "" {
		s.cap.Set(gocv.VideoCaptureFOURCC, s.cap.ToCodec(cc))
	}
	s.cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	s.cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	s.cap.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	s.cap.Set(gocv.VideoCaptureBufferSize, 1)

	if cfg.Brightness >= 0 {
		s.cap.Set(gocv.VideoCaptureBrightness, float64(cfg.Brightness)/100.0)
	}

	switch cfg.Exposure {
	case SettingAuto:
		s.cap.Set(gocv.VideoCaptureAutoExposure, v4l2AutoExposureOn)
	case SettingHold, "":
	default:
		if v, ok := cfg.ManualExposure(); ok {
			s.cap.Set(gocv.VideoCaptureAutoExposure, v4l2AutoExposureOff)
			s.cap.Set(gocv.VideoCaptureExposure, float64(v)/100.0)
		}
	}

	switch cfg.WhiteBalance {
	case SettingAuto:
		s.cap.Set(gocv.VideoCaptureAutoWB, 1)
	case SettingHold, "":
	default:
		if v, ok := cfg.ManualWhiteBalance(); ok {
			s.cap.Set(gocv.VideoCaptureAutoWB, 0)
			s.cap.Set(gocv.VideoCaptureWBTemperature, float64(v))
		}
	}

	for _, c := range cfg.controls() {
		s.cap.Set(c.prop, c.value)
	}
}

type control struct {
	prop  gocv.VideoCaptureProperties
	value float64
}

// controls returns the raw V4L2 controls to set, in order. Controls left at
// DriverDefault are skipped. An absolute exposure turns auto exposure off
// first.
func (c *Config) controls() []control {
	var out []control
	add := func(prop gocv.VideoCaptureProperties, v int) {
		if v != DriverDefault {
			out = append(out, control{prop, float64(v)})
		}
	}
	add(gocv.VideoCaptureContrast, c.Contrast)
	add(gocv.VideoCaptureSaturation, c.Saturation)
	add(gocv.VideoCaptureSharpness, c.Sharpness)
	add(gocv.VideoCaptureGain, c.Gain)
	if c.ExposureAbsolute != DriverDefault {
		out = append(out,
			control{gocv.VideoCaptureAutoExposure, v4l2AutoExposureOff},
			control{gocv.VideoCaptureExposure, float64(c.ExposureAbsolute)},
		)
	}
	return out
}

// The V4L2 backend maps CAP_PROP_AUTO_EXPOSURE 0.25 to manual and 0.75 to
// aperture priority.
const (
	v4l2AutoExposureOff = 0.25
	v4l2AutoExposureOn  = 0.75
)

// Read blocks until the next frame is decoded into dst. A cancelled context
// is checked before every grab, so shutdown waits at most one frame period.
func (s *Source) Read(ctx context.Context, dst *gocv.Mat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if ok := s.cap.Read(dst); !ok || dst.Empty() {
		if s.file {
			return ErrClosed
		}
		return ErrEmptyFrame
	}
	return nil
}

// Close releases the device. Further reads return ErrClosed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.cap.Close()
}

func isIndex(path string) bool {
	_, err := strconv.Atoi(path)
	return err == nil
}

func isRegularFile(path string) bool {
	if strings.HasPrefix(path, "/dev/") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
