package config

import (
	"path/filepath"

	"kabiseo/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`           // debug, info, warn, error
	Dir        string          `yaml:"dir" json:"dir,omitempty"`               // defaults to <config dir>/logs
	JSONFormat bool            `yaml:"json_format" json:"json_format,omitempty"`
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"` // Master toggle - false = no logging (production)
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false (production mode).
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// Runtime converts the YAML settings for logging.Initialize. configDir is
// used to place logs when no directory is configured.
func (c *LoggingConfig) Runtime(configDir string) logging.Config {
	dir := c.Dir
	if dir == "" {
		dir = filepath.Join(configDir, "logs")
	}
	return logging.Config{
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		Dir:        dir,
		JSONFormat: c.JSONFormat,
		Categories: c.Categories,
	}
}
