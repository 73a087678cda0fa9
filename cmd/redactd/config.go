package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all redactd configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	DBPath          string        `yaml:"db_path"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	MaxBulkMatches  int           `yaml:"max_bulk_matches"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = ":8087"
	}
	if c.DBPath == "" {
		c.DBPath = "redact.db"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 4 << 20
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
