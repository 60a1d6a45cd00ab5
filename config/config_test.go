package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"stereoctl.app/stereoctl/dispatch"
	"stereoctl.app/stereoctl/gesture"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`transport: soap
target: http://10.0.0.9:8350/description.xml
gestures:
  min_interval: 500ms
  map:
    Push: stop
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, TransportSOAP, cfg.Transport)
	require.Equal(t, "http://10.0.0.9:8350/description.xml", cfg.Target)
	require.Equal(t, 500*time.Millisecond, cfg.Gestures.MinInterval)
	require.Equal(t, map[string]string{"Push": "stop"}, cfg.Gestures.Map)
	// Untouched keys keep their defaults.
	require.Equal(t, "127.0.0.1:8351", cfg.Gestures.Listen)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: [soap"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Transport = TransportSim
	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyOverrides([]string{
		"transport=soap",
		"discovery_delay=5",
		"gestures.min_interval=300ms",
		"gestures.map.wave=zoom-in",
		"bridge.advertise=false",
	})
	require.NoError(t, err)

	require.Equal(t, TransportSOAP, cfg.Transport)
	require.Equal(t, 5, cfg.DiscoveryDelay)
	require.Equal(t, 300*time.Millisecond, cfg.Gestures.MinInterval)
	require.Equal(t, "zoom-in", cfg.Gestures.Map["wave"])
	require.False(t, cfg.Bridge.Advertise)
	require.Equal(t, "Stereo Player", cfg.Bridge.FriendlyName)
	require.Equal(t, dispatch.PlayerClassID, cfg.ClassID)
}

func TestGestureOverrideKeepsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyOverrides([]string{"gestures.map.wave=zoom-in"}))
	require.NoError(t, cfg.Validate())

	m, err := gesture.ParseMap(cfg.Gestures.Map)
	require.NoError(t, err)
	require.Len(t, m, len(gesture.DefaultMap()))

	a, ok := m.Lookup("Wave")
	require.True(t, ok)
	require.Equal(t, gesture.ZoomIn, a)

	a, ok = m.Lookup("Click")
	require.True(t, ok)
	require.Equal(t, gesture.TogglePlayPause, a)
}

func TestApplyOverridesErrors(t *testing.T) {
	tt := []struct {
		name  string
		input string
	}{
		{`no equals`, "transport"},
		{`empty key`, "=soap"},
		{`empty segment`, "gestures..listen=x"},
		{`unknown key`, "colour=blue"},
		{`bad duration`, "gestures.min_interval=soon"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := DefaultConfig().ApplyOverrides([]string{tc.input})
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("%s: got: %v, want: %v.", tc.name, err, ErrInvalidConfig)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tt := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{`defaults`, func(*Config) {}, true},
		{`soap without target`, func(c *Config) { c.Transport = TransportSOAP }, true},
		{`unknown transport`, func(c *Config) { c.Transport = "dde" }, false},
		{`com without class`, func(c *Config) { c.ClassID = "" }, false},
		{`bad log level`, func(c *Config) { c.LogLevel = "loud" }, false},
		{`negative delay`, func(c *Config) { c.DiscoveryDelay = -1 }, false},
		{`negative interval`, func(c *Config) { c.Gestures.MinInterval = -time.Second }, false},
		{`bad gesture action`, func(c *Config) { c.Gestures.Map = map[string]string{"Wave": "dance"} }, false},
		{`bad bridge backend`, func(c *Config) { c.Bridge.Backend = TransportSOAP }, false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("%s: got: %v, want: nil.", tc.name, err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("%s: got: %v, want: %v.", tc.name, err, ErrInvalidConfig)
			}
		})
	}
}
