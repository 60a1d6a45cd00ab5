// Package config loads the stereoctl YAML configuration and applies
// key=value overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/gesture"
)

// Transport names.
const (
	TransportCOM  = "com"
	TransportSOAP = "soap"
	TransportSim  = "sim"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	// Transport used to reach the player: com, soap or sim.
	Transport string `yaml:"transport"`

	// Bridge description URL for the soap transport. Empty means discover.
	Target string `yaml:"target,omitempty"`

	// Automation class id for the com transport.
	ClassID string `yaml:"class_id"`

	LogLevel string `yaml:"log_level"`

	// Discovery wait in seconds.
	DiscoveryDelay int `yaml:"discovery_delay"`

	Gestures GestureConfig `yaml:"gestures"`
	Bridge   BridgeConfig  `yaml:"bridge"`
}

// GestureConfig configures the tracker event server.
type GestureConfig struct {
	Listen      string            `yaml:"listen"`
	MinInterval time.Duration     `yaml:"min_interval"`
	Map         map[string]string `yaml:"map,omitempty"`
}

// BridgeConfig configures the SOAP automation bridge.
type BridgeConfig struct {
	Listen       string `yaml:"listen"`
	FriendlyName string `yaml:"friendly_name"`
	// Backend the bridge exposes: com or sim.
	Backend   string `yaml:"backend"`
	Advertise bool   `yaml:"advertise"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Transport:      TransportCOM,
		ClassID:        dispatch.PlayerClassID,
		LogLevel:       "info",
		DiscoveryDelay: 2,
		Gestures: GestureConfig{
			Listen:      "127.0.0.1:8351",
			MinInterval: 250 * time.Millisecond,
		},
		Bridge: BridgeConfig{
			Listen:       ":8350",
			FriendlyName: "Stereo Player",
			Backend:      TransportCOM,
			Advertise:    true,
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	oscfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("DefaultPath: failed to get config dir due to error %w", err)
	}

	return filepath.Join(oscfg, "stereoctl", "config.yaml"), nil
}

// LoadConfig loads configuration from file. A missing file yields the
// defaults; values present in the file replace them.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("LoadConfig: failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig: failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("SaveConfig: failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("SaveConfig: failed to create config dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("SaveConfig: failed to write config file: %w", err)
	}

	return nil
}

// ApplyOverrides merges dotted key=value pairs such as
// "gestures.min_interval=300ms" into the configuration.
func (c *Config) ApplyOverrides(overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}

	tree := make(map[string]interface{})
	for _, o := range overrides {
		key, value, ok := strings.Cut(o, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("override %q: want key=value: %w", o, ErrInvalidConfig)
		}

		node := tree
		parts := strings.Split(strings.ToLower(key), ".")
		for i, p := range parts {
			if p == "" {
				return fmt.Errorf("override %q: empty key segment: %w", o, ErrInvalidConfig)
			}
			if i == len(parts)-1 {
				node[p] = value
				break
			}

			next, ok := node[p].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				node[p] = next
			}
			node = next
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           c,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("ApplyOverrides decoder error: %w", err)
	}

	if err := dec.Decode(tree); err != nil {
		return fmt.Errorf("ApplyOverrides: %v: %w", err, ErrInvalidConfig)
	}

	return nil
}

// Validate checks the values a command depends on.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportCOM:
		if c.ClassID == "" {
			return fmt.Errorf("class_id is required for the com transport: %w", ErrInvalidConfig)
		}
	case TransportSOAP, TransportSim:
	default:
		return fmt.Errorf("transport %q: want com, soap or sim: %w", c.Transport, ErrInvalidConfig)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, ErrInvalidConfig)
	}

	if c.DiscoveryDelay < 0 {
		return fmt.Errorf("discovery_delay must not be negative: %w", ErrInvalidConfig)
	}

	if c.Gestures.MinInterval < 0 {
		return fmt.Errorf("gestures.min_interval must not be negative: %w", ErrInvalidConfig)
	}

	if _, err := gesture.ParseMap(c.Gestures.Map); err != nil {
		return fmt.Errorf("gestures.map: %v: %w", err, ErrInvalidConfig)
	}

	switch c.Bridge.Backend {
	case TransportCOM, TransportSim:
	default:
		return fmt.Errorf("bridge.backend %q: want com or sim: %w", c.Bridge.Backend, ErrInvalidConfig)
	}

	return nil
}

// Level returns the configured zerolog level, info when unparsable.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
