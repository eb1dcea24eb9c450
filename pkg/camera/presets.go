package camera

// Preset names for common configurations
const (
	PresetVision     = "vision"
	PresetDriver     = "driver"
	PresetLowLatency = "lowlatency"
	PresetBright     = "bright"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetVision:     DefaultConfig(),
		PresetDriver:     DriverConfig(),
		PresetLowLatency: LowLatencyConfig(),
		PresetBright:     BrightFieldConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetVision,
		PresetDriver,
		PresetLowLatency,
		PresetBright,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// DriverConfig returns a configuration a human can drive by.
// Auto exposure washes out the tape, so targeting stays Searching.
func DriverConfig() Config {
	cfg := DefaultConfig()
	cfg.Name = "driver"
	cfg.Brightness = 50
	cfg.Exposure = SettingAuto
	return cfg
}

// LowLatencyConfig trades resolution for frame rate. The distance table
// was collected at 240 rows, so distances read long at this size.
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 160
	cfg.Height = 120
	cfg.FPS = 60
	cfg.Quality = 60
	return cfg
}

// BrightFieldConfig darkens the image further for venues with strong
// overhead lighting.
func BrightFieldConfig() Config {
	cfg := DefaultConfig()
	cfg.Brightness = 15
	cfg.Exposure = "5"
	cfg.WhiteBalance = "4500"
	return cfg
}
