// Package config loads the optional benchlink configuration file. Fields
// omitted from the JSON keep their defaults, so partial configs are safe;
// command-line flags override whatever the file says.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the on-disk configuration. All fields are optional; the Get*
// methods supply defaults for anything left unset.
type Config struct {
	// Listen is the HTTP listen address for the GUI-facing API.
	Listen *string `json:"listen,omitempty"`

	// DBPath is the sqlite file holding readings and connection history.
	DBPath *string `json:"db_path,omitempty"`

	// Serial parameters, fixed for the lifetime of the process.
	BaudRate    *int    `json:"baud_rate,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty"` // duration string like "100ms"

	// AutoConnectPort, when set, is connected at startup. Failures are
	// logged, not fatal; the GUI can retry through the API.
	AutoConnectPort *string `json:"auto_connect_port,omitempty"`

	// DisableSerial runs the service without any serial transport.
	DisableSerial *bool `json:"disable_serial,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads and validates a config file. The path must end in .json and
// the file is capped at 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the set fields hold usable values.
func (c *Config) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		d, err := time.ParseDuration(*c.ReadTimeout)
		if err != nil {
			return fmt.Errorf("invalid read_timeout %q: %w", *c.ReadTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("read_timeout must be positive, got %q", *c.ReadTimeout)
		}
	}
	if c.Listen != nil && *c.Listen == "" {
		return fmt.Errorf("listen must not be empty when set")
	}
	return nil
}

// GetListen returns the listen address or the localhost default. The GUI
// and this service run on the same machine, so the default never exposes
// the device to the network.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return "127.0.0.1:8790"
	}
	return *c.Listen
}

// GetDBPath returns the sqlite path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return "benchlink.db"
	}
	return *c.DBPath
}

// GetBaudRate returns the baud rate or the default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetReadTimeout parses and returns the read timeout or the default.
func (c *Config) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetAutoConnectPort returns the startup port, or "" for none.
func (c *Config) GetAutoConnectPort() string {
	if c.AutoConnectPort == nil {
		return ""
	}
	return *c.AutoConnectPort
}

// GetDisableSerial reports whether the serial transport is switched off.
func (c *Config) GetDisableSerial() bool {
	if c.DisableSerial == nil {
		return false
	}
	return *c.DisableSerial
}
