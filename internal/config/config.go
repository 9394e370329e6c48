// Package config handles caddie configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/caddie/config.yaml, /etc/caddie/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "caddie", "config.yaml"))
	}

	paths = append(paths, "/etc/caddie/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all caddie configuration.
type Config struct {
	Listen      ListenConfig `yaml:"listen"`
	Model       ModelConfig  `yaml:"model"`
	MQTT        MQTTConfig   `yaml:"mqtt"`
	DataDir     string       `yaml:"data_dir"`
	PersonaFile string       `yaml:"persona_file"`
	LogLevel    string       `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines the classification model settings.
type ModelConfig struct {
	// BaseURL is the Ollama-compatible endpoint.
	BaseURL string `yaml:"base_url"`
	// Name is the model used for classification.
	Name string `yaml:"name"`
	// TimeoutSec bounds one classification call (default 20).
	TimeoutSec int `yaml:"timeout_sec"`
}

// MQTTConfig defines the optional analytics event sink. When enabled,
// sanitized pipeline events are published to the configured topic.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"` // e.g. mqtt://broker:1883 or mqtts://...
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
}

// Load reads configuration from a YAML file. Environment variables in
// the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			BaseURL:    "http://localhost:11434",
			Name:       "qwen3:4b",
			TimeoutSec: 20,
		},
		MQTT: MQTTConfig{
			Topic:    "caddie/events",
			ClientID: "caddie",
		},
		DataDir: "data",
	}
}
