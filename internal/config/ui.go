package config

import (
	"fmt"
	"strings"

	"kabiseo/internal/session"
)

// ComposerConfig shapes the message input.
type ComposerConfig struct {
	// MaxHeight is the number of lines the composer grows to before it
	// scrolls internally.
	MaxHeight int `yaml:"max_height"`

	// CharLimit caps a single message (0 = unlimited).
	CharLimit int `yaml:"char_limit"`
}

// UIConfig holds user interface configuration.
type UIConfig struct {
	Theme   string `yaml:"theme"` // auto, light, dark
	BotName string `yaml:"bot_name"`
}

// QuickMenuItem is one main-menu button.
type QuickMenuItem struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// QuickMenuConfig attaches Items as buttons to any plain bot message whose
// text contains one of Keywords. Empty Items disables the feature.
type QuickMenuConfig struct {
	Keywords []string        `yaml:"keywords"`
	Items    []QuickMenuItem `yaml:"items"`
}

// DefaultQuickMenuConfig mirrors session.DefaultQuickMenu.
func DefaultQuickMenuConfig() QuickMenuConfig {
	def := session.DefaultQuickMenu()
	qm := QuickMenuConfig{Keywords: def.Keywords}
	for _, b := range def.Items {
		qm.Items = append(qm.Items, QuickMenuItem{Label: b.Label, Value: b.Value})
	}
	return qm
}

// Session converts the configured menu for the reducer.
func (q QuickMenuConfig) Session() session.QuickMenu {
	menu := session.QuickMenu{Keywords: q.Keywords}
	for _, it := range q.Items {
		menu.Items = append(menu.Items, session.Button{Label: it.Label, Value: it.Value})
	}
	return menu
}

func (q QuickMenuConfig) validate() error {
	for i, it := range q.Items {
		if strings.TrimSpace(it.Label) == "" || strings.TrimSpace(it.Value) == "" {
			return fmt.Errorf("invalid quick_menu.items[%d]: label and value are required", i)
		}
	}
	return nil
}
