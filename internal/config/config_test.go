package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.URL != "ws://localhost:5000/ws" {
		t.Errorf("expected default server url, got %s", cfg.Server.URL)
	}
	if cfg.Composer.MaxHeight != 3 {
		t.Errorf("expected MaxHeight=3, got %d", cfg.Composer.MaxHeight)
	}
	if cfg.UI.BotName != "카비서" {
		t.Errorf("expected BotName=카비서, got %s", cfg.UI.BotName)
	}
	if len(cfg.QuickMenu.Items) != 5 {
		t.Errorf("expected 5 quick menu items, got %d", len(cfg.QuickMenu.Items))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("KABISEO_SERVER_URL", "")
	t.Setenv("KABISEO_DARK_MODE", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.URL = "wss://chat.example.com/ws"
	cfg.Reconnect.MaxInterval = "1m"
	cfg.QuickMenu.Items = cfg.QuickMenu.Items[:2]

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Server.URL != "wss://chat.example.com/ws" {
		t.Errorf("expected saved url, got %s", loaded.Server.URL)
	}
	if loaded.GetMaxInterval() != time.Minute {
		t.Errorf("expected 1m max interval, got %v", loaded.GetMaxInterval())
	}
	if len(loaded.QuickMenu.Items) != 2 {
		t.Errorf("expected 2 quick menu items, got %d", len(loaded.QuickMenu.Items))
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Composer.CharLimit != 2000 {
		t.Errorf("expected default char limit, got %d", cfg.Composer.CharLimit)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("composer:\n  max_height: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Composer.MaxHeight != 5 {
		t.Errorf("expected MaxHeight=5, got %d", cfg.Composer.MaxHeight)
	}
	if cfg.UI.BotName != "카비서" {
		t.Errorf("unset fields should keep defaults, got bot name %q", cfg.UI.BotName)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"http scheme", func(c *Config) { c.Server.URL = "http://localhost/ws" }},
		{"no host", func(c *Config) { c.Server.URL = "ws:///ws" }},
		{"bad dial timeout", func(c *Config) { c.Server.DialTimeout = "soon" }},
		{"zero interval", func(c *Config) { c.Reconnect.InitialInterval = "0s" }},
		{"max below initial", func(c *Config) { c.Reconnect.MaxInterval = "100ms" }},
		{"shrinking multiplier", func(c *Config) { c.Reconnect.Multiplier = 0.5 }},
		{"zero composer height", func(c *Config) { c.Composer.MaxHeight = 0 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }},
		{"blank menu item", func(c *Config) { c.QuickMenu.Items[0].Value = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.DialTimeout = "garbage"
	cfg.Reconnect.InitialInterval = ""
	if cfg.GetDialTimeout() != 10*time.Second {
		t.Errorf("expected fallback dial timeout, got %v", cfg.GetDialTimeout())
	}
	if cfg.GetInitialInterval() != 500*time.Millisecond {
		t.Errorf("expected fallback initial interval, got %v", cfg.GetInitialInterval())
	}
}

func TestQuickMenuConversion(t *testing.T) {
	menu := DefaultQuickMenuConfig().Session()
	if len(menu.Items) != 5 || menu.Items[0].Label != "체험단 신청" || menu.Items[0].Value != "1" {
		t.Errorf("unexpected menu: %+v", menu.Items)
	}

	empty := QuickMenuConfig{}.Session()
	if len(empty.Items) != 0 {
		t.Error("empty config should disable the menu")
	}
}

func TestLoggingRuntime(t *testing.T) {
	lc := LoggingConfig{DebugMode: true, Level: "debug"}
	rt := lc.Runtime("/tmp/kabiseo")
	if rt.Dir != filepath.Join("/tmp/kabiseo", "logs") {
		t.Errorf("expected default log dir, got %s", rt.Dir)
	}
	if !rt.DebugMode || rt.Level != "debug" {
		t.Errorf("unexpected runtime config: %+v", rt)
	}

	lc.Dir = "/var/log/kabiseo"
	if got := lc.Runtime("/tmp/kabiseo").Dir; got != "/var/log/kabiseo" {
		t.Errorf("explicit dir should win, got %s", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("transport") {
		t.Error("disabled outside debug mode")
	}
	lc.DebugMode = true
	lc.Categories = map[string]bool{"transport": false}
	if lc.IsCategoryEnabled("transport") {
		t.Error("explicitly disabled category")
	}
	if !lc.IsCategoryEnabled("ui") {
		t.Error("unlisted category defaults to enabled")
	}
}
