package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete listener configuration
type Config struct {
	Listener ListenerConfig `yaml:"listener"`
	HTTP     HTTPConfig     `yaml:"http"`
	Registry RegistryConfig `yaml:"registry"`
	Display  DisplayConfig  `yaml:"display"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ListenerConfig contains multicast listener configuration
type ListenerConfig struct {
	Group      string `yaml:"group"`       // multicast group address
	Port       int    `yaml:"port"`        // UDP port
	Interface  string `yaml:"interface"`   // network interface name, empty for default
	BufferSize int    `yaml:"buffer_size"` // receive buffer; datagrams over 1024 bytes are routine
	QueueSize  int    `yaml:"queue_size"`  // datagrams queued between receive and decode
}

// HTTPConfig contains HTTP monitoring API configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// RegistryConfig contains node registry configuration
type RegistryConfig struct {
	NodeTimeout int `yaml:"node_timeout"` // seconds before a silent node is dropped
}

// DisplayConfig contains table output configuration
type DisplayConfig struct {
	Mode            string `yaml:"mode"`             // table, trace or quiet
	RefreshInterval int    `yaml:"refresh_interval"` // seconds between table renders
}

// Display modes.
const (
	DisplayTable = "table" // concise listing of decoded advertisements
	DisplayTrace = "trace" // opcode-by-opcode diagnostic trace
	DisplayQuiet = "quiet" // logs and HTTP API only
)

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is supplied. The
// group and port are the well-known Livewire advertisement endpoint.
func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			Group:      "239.192.255.3",
			Port:       4001,
			BufferSize: 8192,
			QueueSize:  256,
		},
		HTTP: HTTPConfig{
			Port:    9090,
			Address: "127.0.0.1",
		},
		Registry: RegistryConfig{
			NodeTimeout: 120,
		},
		Display: DisplayConfig{
			Mode:            DisplayTable,
			RefreshInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file, applying defaults for
// anything left unset
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Listener.Validate(); err != nil {
		return fmt.Errorf("listener config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}

	if err := c.Display.Validate(); err != nil {
		return fmt.Errorf("display config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates listener configuration
func (l *ListenerConfig) Validate() error {
	ip := net.ParseIP(l.Group)
	if ip == nil {
		return fmt.Errorf("group %q is not a valid IP address", l.Group)
	}
	if !ip.IsMulticast() {
		return fmt.Errorf("group %s is not a multicast address", l.Group)
	}

	if l.Port < 1 || l.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", l.Port)
	}

	// Advertisement datagrams have been observed above 1024 bytes;
	// an undersized buffer truncates reads and corrupts decoding with
	// no recovery.
	if l.BufferSize < 4096 {
		return fmt.Errorf("buffer_size must be at least 4096 bytes, got %d", l.BufferSize)
	}

	if l.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", l.QueueSize)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates registry configuration
func (r *RegistryConfig) Validate() error {
	if r.NodeTimeout < 1 {
		return fmt.Errorf("node_timeout must be at least 1 second, got %d", r.NodeTimeout)
	}

	return nil
}

// Validate validates display configuration
func (d *DisplayConfig) Validate() error {
	switch d.Mode {
	case DisplayTable, DisplayTrace, DisplayQuiet:
	default:
		return fmt.Errorf("mode must be one of table, trace, quiet; got %q", d.Mode)
	}

	if d.Mode == DisplayTable && d.RefreshInterval < 1 {
		return fmt.Errorf("refresh_interval must be at least 1 second, got %d", d.RefreshInterval)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error; got %q", l.Level)
	}

	switch l.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}

	return nil
}

// GetNodeTimeoutDuration returns the node timeout as a time.Duration
func (r *RegistryConfig) GetNodeTimeoutDuration() time.Duration {
	return time.Duration(r.NodeTimeout) * time.Second
}

// GetRefreshIntervalDuration returns the refresh interval as a time.Duration
func (d *DisplayConfig) GetRefreshIntervalDuration() time.Duration {
	return time.Duration(d.RefreshInterval) * time.Second
}

// GroupAddress returns the group and port joined as a dial-style address
func (l *ListenerConfig) GroupAddress() string {
	return fmt.Sprintf("%s:%d", l.Group, l.Port)
}
