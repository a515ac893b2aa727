// Package ui provides the visual styling for the kabiseo terminal chat.
// Colors follow the reviewer web app's palette with light/dark variants.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kabiseo/internal/session"
)

// Color palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#1f2937")
	LightPrimary    = lipgloss.Color("#4f46e5") // Indigo
	LightAccent     = lipgloss.Color("#eef2ff")
	LightMuted      = lipgloss.Color("#9ca3af")
	LightBorder     = lipgloss.Color("#dddddd")
	LightCard       = lipgloss.Color("#ffffff")
	LightBubble     = lipgloss.Color("#fef08a") // User bubble, kakao-ish yellow

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#141d2b")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#818cf8")
	DarkAccent     = lipgloss.Color("#312e81")
	DarkMuted      = lipgloss.Color("#6b7280")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkCard       = lipgloss.Color("#1a2536")
	DarkBubble     = lipgloss.Color("#a16207")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#22c55e")
	Warning     = lipgloss.Color("#f59e0b")
	Info        = lipgloss.Color("#3b82f6")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	Bubble     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		Bubble:     LightBubble,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		Bubble:     DarkBubble,
		IsDark:     true,
	}
}

// ThemeFor resolves a configured theme name ("light", "dark", "auto" or
// empty). Unknown names fall back to detection.
func ThemeFor(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// DetectTheme guesses the terminal background from COLORFGBG and
// KABISEO_DARK_MODE, defaulting to light.
func DetectTheme() Theme {
	// Format is usually "foreground;background" (sometimes with a middle field)
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if bgIdx, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			// 0-6 and 8 (dark grey) are dark backgrounds
			if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
				return DarkTheme()
			}
		}
	}

	if os.Getenv("KABISEO_DARK_MODE") == "1" {
		return DarkTheme()
	}

	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Input   lipgloss.Style

	// Text
	Title  lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style
	Bold   lipgloss.Style
	Stamp  lipgloss.Style
	Link   lipgloss.Style
	Author lipgloss.Style

	// Transcript
	UserBubble lipgloss.Style
	BotBody    lipgloss.Style

	// Status
	Online     lipgloss.Style
	Connecting lipgloss.Style
	Offline    lipgloss.Style
	Error      lipgloss.Style

	// Interactive
	Button          lipgloss.Style
	ButtonSecondary lipgloss.Style
	ButtonDanger    lipgloss.Style
	ButtonDisabled  lipgloss.Style
	Focused         lipgloss.Style

	Card       lipgloss.Style
	CardClosed lipgloss.Style
	Badge      lipgloss.Style
	BadgeMuted lipgloss.Style
	BadgeHot   lipgloss.Style

	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style
	PickerLocked   lipgloss.Style
	Tag            lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Divider lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	button := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("#ffffff")).
		Background(theme.Primary)

	badge := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("#ffffff")).
		Background(theme.Primary).
		Bold(true)

	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Content: lipgloss.NewStyle().
			Padding(0, 1),

		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Stamp: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Faint(true),

		Link: lipgloss.NewStyle().
			Foreground(Info).
			Underline(true),

		Author: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		UserBubble: lipgloss.NewStyle().
			Background(theme.Bubble).
			Foreground(lipgloss.Color("#111111")).
			Padding(0, 1),

		BotBody: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Primary),

		Online:     lipgloss.NewStyle().Foreground(Success).Bold(true),
		Connecting: lipgloss.NewStyle().Foreground(Warning),
		Offline:    lipgloss.NewStyle().Foreground(Destructive).Bold(true),
		Error:      lipgloss.NewStyle().Foreground(Destructive),

		Button:          button,
		ButtonSecondary: button.Background(theme.Muted),
		ButtonDanger:    button.Background(Destructive),
		ButtonDisabled: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(theme.Muted).
			Faint(true),
		Focused: lipgloss.NewStyle().
			Underline(true).
			Bold(true),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		CardClosed: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Foreground(theme.Muted).
			Padding(0, 1),
		Badge:      badge,
		BadgeMuted: badge.Background(theme.Muted),
		BadgeHot:   badge.Background(Destructive),

		PickerItem: lipgloss.NewStyle().
			Foreground(theme.Foreground),
		PickerSelected: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		PickerLocked: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Tag: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(theme.Primary).
			Padding(0, 1),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Primary),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// ButtonStyle picks the style for a server button. Disabled wins over the
// button's own style.
func (s Styles) ButtonStyle(style session.ButtonStyle, disabled bool) lipgloss.Style {
	if disabled {
		return s.ButtonDisabled
	}
	switch style {
	case session.StyleSecondary:
		return s.ButtonSecondary
	case session.StyleDanger:
		return s.ButtonDanger
	default:
		return s.Button
	}
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
