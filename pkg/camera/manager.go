package camera

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for applying to the open source)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates and stores cfg, then applies it.
func (m *Manager) SetConfig(cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values, as decoded from a JSON body.
// The device path and name cannot be changed at runtime.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	// A preset replaces the video settings but keeps the device.
	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		preset.Name, preset.Path = cfg.Name, cfg.Path
		cfg = *preset
	}

	for key, value := range params {
		switch key {
		case "preset":
		case "pixel_format":
			if v, ok := value.(string); ok {
				cfg.PixelFormat = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "fps":
			if v, ok := toInt(value); ok {
				cfg.FPS = v
			}
		case "brightness":
			if v, ok := toInt(value); ok {
				cfg.Brightness = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				cfg.Quality = v
			}
		case "contrast", "saturation", "sharpness", "gain", "exposure_absolute":
			if v, ok := toInt(value); ok {
				*controlField(&cfg, key) = v
			}
		case "exposure":
			if v, ok := toSetting(value); ok {
				cfg.Exposure = v
			}
		case "white_balance":
			if v, ok := toSetting(value); ok {
				cfg.WhiteBalance = v
			}
		default:
			return fmt.Errorf("unknown camera setting: %s", key)
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() (map[string]interface{}, error) {
	cfg := m.GetConfig()

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode camera config: %w", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode camera config: %w", err)
	}

	return result, nil
}

func controlField(cfg *Config, key string) *int {
	switch key {
	case "contrast":
		return &cfg.Contrast
	case "saturation":
		return &cfg.Saturation
	case "sharpness":
		return &cfg.Sharpness
	case "gain":
		return &cfg.Gain
	default:
		return &cfg.ExposureAbsolute
	}
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// toSetting accepts "auto"/"hold" strings or a bare number.
func toSetting(v interface{}) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if i, ok := toInt(v); ok {
		return strconv.Itoa(i), true
	}
	return "", false
}
