package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all kabiseo configuration.
type Config struct {
	// Chat server
	Server ServerConfig `yaml:"server"`

	// Reconnect backoff
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Message composer
	Composer ComposerConfig `yaml:"composer"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Main-menu buttons attached to menu prompts
	QuickMenu QuickMenuConfig `yaml:"quick_menu"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig locates the chat server.
type ServerConfig struct {
	URL         string `yaml:"url"`    // ws:// or wss://
	Origin      string `yaml:"origin"` // Origin header for the handshake
	DialTimeout string `yaml:"dial_timeout"`
}

// ReconnectConfig shapes the exponential backoff between redials.
type ReconnectConfig struct {
	InitialInterval string  `yaml:"initial_interval"`
	MaxInterval     string  `yaml:"max_interval"`
	Multiplier      float64 `yaml:"multiplier"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:         "ws://localhost:5000/ws",
			Origin:      "http://localhost/",
			DialTimeout: "10s",
		},

		Reconnect: ReconnectConfig{
			InitialInterval: "500ms",
			MaxInterval:     "30s",
			Multiplier:      1.6,
		},

		Composer: ComposerConfig{
			MaxHeight: 3,
			CharLimit: 2000,
		},

		UI: UIConfig{
			Theme:   "auto",
			BotName: "카비서",
		},

		QuickMenu: DefaultQuickMenuConfig(),

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDir is the per-user configuration directory.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "kabiseo")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kabiseo")
}

// DefaultPath returns the config file path, honouring KABISEO_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("KABISEO_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("KABISEO_SERVER_URL"); u != "" {
		c.Server.URL = u
	}
	if isTruthy(os.Getenv("KABISEO_DEBUG")) {
		c.Logging.DebugMode = true
	}
	if lvl := os.Getenv("KABISEO_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if v := os.Getenv("KABISEO_DARK_MODE"); v != "" {
		if isTruthy(v) {
			c.UI.Theme = "dark"
		} else {
			c.UI.Theme = "light"
		}
	}
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetDialTimeout returns the dial timeout as a duration.
func (c *Config) GetDialTimeout() time.Duration {
	return parseDuration(c.Server.DialTimeout, 10*time.Second)
}

// GetInitialInterval returns the first reconnect delay.
func (c *Config) GetInitialInterval() time.Duration {
	return parseDuration(c.Reconnect.InitialInterval, 500*time.Millisecond)
}

// GetMaxInterval returns the reconnect delay cap.
func (c *Config) GetMaxInterval() time.Duration {
	return parseDuration(c.Reconnect.MaxInterval, 30*time.Second)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", c.Server.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid server url %q: scheme must be ws or wss", c.Server.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server url %q: missing host", c.Server.URL)
	}

	for name, v := range map[string]string{
		"server.dial_timeout":        c.Server.DialTimeout,
		"reconnect.initial_interval": c.Reconnect.InitialInterval,
		"reconnect.max_interval":     c.Reconnect.MaxInterval,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q (must be a positive duration)", name, v)
		}
	}
	if c.GetMaxInterval() < c.GetInitialInterval() {
		return fmt.Errorf("reconnect.max_interval must not be below initial_interval")
	}
	if c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("invalid reconnect.multiplier: %v (must be >= 1)", c.Reconnect.Multiplier)
	}

	if c.Composer.MaxHeight < 1 {
		return fmt.Errorf("invalid composer.max_height: %d (must be >= 1)", c.Composer.MaxHeight)
	}
	if c.Composer.CharLimit < 0 {
		return fmt.Errorf("invalid composer.char_limit: %d", c.Composer.CharLimit)
	}

	switch c.UI.Theme {
	case "", "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid ui.theme: %s (valid: auto, light, dark)", c.UI.Theme)
	}

	return c.QuickMenu.validate()
}
