// Package config provides optional YAML configuration for the event
// handler. Everything here can also be set with CLI flags; flags win.
//
// Example:
//
//	dbhost: db.example.com:443
//	eventserver: events.example.com
//	port: 3379
//	verbose: true
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/api"
)

// Config is the root configuration.
type Config struct {
	// DBHost is the setup DB server, host:port.
	DBHost string `yaml:"dbhost"`

	// EventServer is the event server hostname. The per-zone port is
	// derived from directory data, so no port here.
	EventServer string `yaml:"eventserver"`

	// Port is the status endpoint port. Defaults to api.DefaultPort.
	Port int `yaml:"port"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(raw)
}

// Parse parses YAML config bytes and applies defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = api.DefaultPort
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}

	return cfg, nil
}
