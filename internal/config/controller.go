package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/intersection/internal/detection"
	"github.com/banshee-data/intersection/internal/lights"
	"github.com/banshee-data/intersection/internal/status"
	"github.com/banshee-data/intersection/internal/zone"
)

// DefaultConfigPath is the path to the canonical controller defaults file.
const DefaultConfigPath = "config/controller.defaults.json"

// ControllerConfig is the controller's JSON configuration. Every field is
// optional; the Get* methods fall back to the built-in defaults, so partial
// files are safe.
type ControllerConfig struct {
	// Detection filter
	TargetLabels        []string `json:"target_labels,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`

	// Zones are used as given; overlapping or out-of-range rectangles are
	// the operator's call.
	Zones []ZoneConfig `json:"zones,omitempty"`

	// Decision engine
	DebounceFrames *int         `json:"debounce_frames,omitempty"`
	InitialStreet  *zone.Street `json:"initial_street,omitempty"`

	// Status output
	StatusPath         *string `json:"status_path,omitempty"`
	StatusDBPath       *string `json:"status_db_path,omitempty"`
	StatusWriteTimeout *string `json:"status_write_timeout,omitempty"` // duration string like "500ms"

	// Lights
	GPIOChip      *string      `json:"gpio_chip,omitempty"`
	GPIOPins      *lights.Pins `json:"gpio_pins,omitempty"`
	RelayChannels *lights.Pins `json:"relay_channels,omitempty"`
}

// ZoneConfig is one zone rectangle in normalised frame coordinates.
type ZoneConfig struct {
	Label  string      `json:"label"`
	Street zone.Street `json:"street"`
	XMin   float64     `json:"xmin"`
	XMax   float64     `json:"xmax"`
	YMin   float64     `json:"ymin"`
	YMax   float64     `json:"ymax"`
}

const defaultStatusWriteTimeout = 500 * time.Millisecond

// EmptyConfig returns a ControllerConfig with every field unset.
func EmptyConfig() *ControllerConfig {
	return &ControllerConfig{}
}

// LoadConfig loads a ControllerConfig from a JSON file and validates it.
func LoadConfig(path string) (*ControllerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. It panics if the file cannot be loaded and is
// intended for test setup.
func MustLoadDefaultConfig() *ControllerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the scalar settings. Zones are not checked.
func (c *ControllerConfig) Validate() error {
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.DebounceFrames != nil && *c.DebounceFrames < 1 {
		return fmt.Errorf("debounce_frames must be at least 1, got %d", *c.DebounceFrames)
	}
	if c.StatusWriteTimeout != nil && *c.StatusWriteTimeout != "" {
		d, err := time.ParseDuration(*c.StatusWriteTimeout)
		if err != nil {
			return fmt.Errorf("invalid status_write_timeout '%s': %w", *c.StatusWriteTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("status_write_timeout must be positive, got %s", d)
		}
	}
	if c.StatusPath != nil && *c.StatusPath != "" && !filepath.IsAbs(*c.StatusPath) {
		return fmt.Errorf("status_path must be absolute, got %q", *c.StatusPath)
	}
	return nil
}

// GetTargetLabels returns the tracked detection labels or the default.
func (c *ControllerConfig) GetTargetLabels() []string {
	if len(c.TargetLabels) == 0 {
		return append([]string(nil), detection.DefaultLabels...)
	}
	return c.TargetLabels
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *ControllerConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return detection.DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

// GetZones returns the configured zones or the four reference zones.
func (c *ControllerConfig) GetZones() []zone.Zone {
	if len(c.Zones) == 0 {
		return zone.DefaultZones()
	}
	zones := make([]zone.Zone, len(c.Zones))
	for i, z := range c.Zones {
		zones[i] = zone.Zone{
			Label:  z.Label,
			Street: z.Street,
			Rect:   zone.Rect{XMin: z.XMin, XMax: z.XMax, YMin: z.YMin, YMax: z.YMax},
		}
	}
	return zones
}

// GetDebounceFrames returns the debounce_frames value or the default.
func (c *ControllerConfig) GetDebounceFrames() int {
	if c.DebounceFrames == nil {
		return 5
	}
	return *c.DebounceFrames
}

// GetInitialStreet returns the initial_street value or street A.
func (c *ControllerConfig) GetInitialStreet() zone.Street {
	if c.InitialStreet == nil {
		return zone.StreetA
	}
	return *c.InitialStreet
}

// GetStatusPath returns the status_path value or the default.
func (c *ControllerConfig) GetStatusPath() string {
	if c.StatusPath == nil || *c.StatusPath == "" {
		return status.DefaultPath
	}
	return *c.StatusPath
}

// GetStatusDBPath returns the status_db_path value. Empty disables the
// SQLite snapshot.
func (c *ControllerConfig) GetStatusDBPath() string {
	if c.StatusDBPath == nil {
		return ""
	}
	return *c.StatusDBPath
}

// GetStatusWriteTimeout parses and returns the StatusWriteTimeout.
func (c *ControllerConfig) GetStatusWriteTimeout() time.Duration {
	if c.StatusWriteTimeout == nil || *c.StatusWriteTimeout == "" {
		return defaultStatusWriteTimeout
	}
	d, err := time.ParseDuration(*c.StatusWriteTimeout)
	if err != nil || d <= 0 {
		return defaultStatusWriteTimeout
	}
	return d
}

// GetGPIOChip returns the gpio_chip value or the default.
func (c *ControllerConfig) GetGPIOChip() string {
	if c.GPIOChip == nil || *c.GPIOChip == "" {
		return lights.DefaultChip
	}
	return *c.GPIOChip
}

// GetGPIOPins returns the gpio_pins value or the default wiring.
func (c *ControllerConfig) GetGPIOPins() lights.Pins {
	if c.GPIOPins == nil {
		return lights.DefaultPins
	}
	return *c.GPIOPins
}

// GetRelayChannels returns the relay_channels value or the default.
func (c *ControllerConfig) GetRelayChannels() lights.Pins {
	if c.RelayChannels == nil {
		return lights.DefaultRelayChannels
	}
	return *c.RelayChannels
}
