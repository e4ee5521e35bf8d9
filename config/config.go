// Package config provides configuration loading for tornwampd, the
// reference router daemon built on top of the router package. Grounded on
// Sentinel-Gate's internal/config package: a mapstructure/yaml-tagged
// struct tree, defaults filled into empty fields after loading, viper for
// file + environment-variable loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// RouterConfig is the top-level configuration for tornwampd.
type RouterConfig struct {
	// Listener configures the transports tornwampd exposes.
	Listener ListenerConfig `yaml:"listener" mapstructure:"listener"`

	// Realms pre-declares realms and their role tables at startup. Realms
	// not listed here are still created lazily on first HELLO, per
	// spec.md §4.6 — this list only lets an operator pin a non-default
	// role table to a realm ahead of time.
	Realms []RealmSpec `yaml:"realms" mapstructure:"realms"`

	// StrictURI enables strict URI validation (spec.md §3) across every
	// realm this router hosts.
	StrictURI bool `yaml:"strict_uri" mapstructure:"strict_uri"`

	// MetricsAddr, if non-empty, serves Prometheus metrics on this
	// address (e.g. "127.0.0.1:9090").
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`

	// DevMode enables verbose per-message tracing (router.DebugEnabled).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// RealmSpec pre-declares one realm and its role table.
type RealmSpec struct {
	URI   string              `yaml:"uri" mapstructure:"uri"`
	Roles map[string]RoleSpec `yaml:"roles" mapstructure:"roles"`
}

// RoleSpec is the YAML-facing shape of router.RoleRule.
type RoleSpec struct {
	Whitelist    []string `yaml:"whitelist" mapstructure:"whitelist"`
	Blacklist    []string `yaml:"blacklist" mapstructure:"blacklist"`
	DefaultAllow bool     `yaml:"default_allow" mapstructure:"default_allow"`
}

// ListenerConfig configures the rawsocket and WebSocket transports.
type ListenerConfig struct {
	// RawSocketAddr, if non-empty, binds the framed-TCP transport
	// (spec.md §4.8) on this address.
	RawSocketAddr string `yaml:"rawsocket_addr" mapstructure:"rawsocket_addr"`

	// WebSocketAddr, if non-empty, binds the WebSocket transport
	// (spec.md §4.8) on this address.
	WebSocketAddr string `yaml:"websocket_addr" mapstructure:"websocket_addr"`

	// MaxFrameLength bounds a single rawsocket frame's payload, in bytes.
	// Defaults to the protocol maximum (0x00FFFFFF) if zero.
	MaxFrameLength uint32 `yaml:"max_frame_length" mapstructure:"max_frame_length"`

	// PreferredSerializer selects the WebSocket transport's preferred
	// subprotocol: "json" or "msgpack" (default).
	PreferredSerializer string `yaml:"preferred_serializer" mapstructure:"preferred_serializer"`
}

// SetDefaults applies sensible default values, the way Sentinel-Gate's
// OSSConfig.SetDefaults does.
func (c *RouterConfig) SetDefaults() {
	if c.Listener.RawSocketAddr == "" && c.Listener.WebSocketAddr == "" {
		c.Listener.WebSocketAddr = "127.0.0.1:8080"
	}
	if c.Listener.PreferredSerializer == "" {
		c.Listener.PreferredSerializer = "msgpack"
	}
}

// InitViper wires up Viper's config file search and TORNWAMP_-prefixed
// environment variable overrides. If configFile is empty, it searches
// standard locations for tornwampd.yaml/.yml.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("tornwampd")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TORNWAMP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{".", filepath.Join(home, ".tornwamp"), "/etc/tornwamp"}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "tornwampd"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Load reads the configuration file (if any), applies environment
// overrides already bound by InitViper, and fills in defaults.
func Load() (*RouterConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	var cfg RouterConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}
