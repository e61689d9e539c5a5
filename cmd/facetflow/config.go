package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/facetflow/coordinator"
	"github.com/poiesic/facetflow/search"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every command.
type Config struct {
	DB                 string        `yaml:"db"`
	Index              string        `yaml:"index"`
	StalledSearchDelay time.Duration `yaml:"stalled_search_delay"`
	HitsPerPage        int           `yaml:"hits_per_page"`
	PoolSize           int           `yaml:"pool_size"`
}

func DefaultConfig() Config {
	return Config{
		StalledSearchDelay: coordinator.DefaultStalledSearchDelay,
		HitsPerPage:        search.DefaultHitsPerPage,
		PoolSize:           coordinator.DefaultPoolSize,
	}
}

func (c Config) Validate() error {
	if c.DB == "" {
		return errors.New("database path is required")
	}
	if c.StalledSearchDelay < 0 {
		return fmt.Errorf("stalled_search_delay must not be negative, got %s", c.StalledSearchDelay)
	}
	if c.HitsPerPage <= 0 {
		return fmt.Errorf("hits_per_page must be greater than 0, got %d", c.HitsPerPage)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be greater than 0, got %d", c.PoolSize)
	}
	return nil
}

// loadConfig starts from the defaults and overlays the YAML file at path.
// An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
