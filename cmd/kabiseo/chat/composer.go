package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"

	"kabiseo/cmd/kabiseo/ui"
)

const composerPlaceholder = "메시지를 입력하세요..."

// newComposer builds the message textarea. Enter is reserved for sending,
// so newlines come from Alt+Enter and Ctrl+J.
func newComposer(cfg Config, styles ui.Styles) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = composerPlaceholder
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = cfg.CharLimit
	// The textarea refuses newlines once it holds MaxHeight lines, so the
	// visible cap lives in composerHeight instead.
	ta.MaxHeight = 0
	ta.SetHeight(1)
	ta.SetWidth(76)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = styles.Muted
	ta.BlurredStyle.Placeholder = styles.Muted
	ta.Focus()
	return ta
}

// composerHeight is the number of visible rows for the current content,
// soft wraps included, between 1 and MaxHeight. Past MaxHeight the
// textarea scrolls internally.
func (m Model) composerHeight() int {
	h := wrappedRows(m.composer.Value(), m.composer.Width())
	if h < 1 {
		h = 1
	}
	if h > m.cfg.MaxHeight {
		h = m.cfg.MaxHeight
	}
	return h
}

// wrappedRows counts the rows value occupies at width columns. A line that
// fills the width exactly takes an extra row for the cursor.
func wrappedRows(value string, width int) int {
	if width < 1 {
		width = 1
	}
	rows := 0
	for _, line := range strings.Split(value, "\n") {
		rows += lipgloss.Width(line)/width + 1
	}
	return rows
}

// fitComposer resizes the composer after its content changed and gives
// the remaining rows back to the transcript.
func (m *Model) fitComposer() {
	if h := m.composerHeight(); h != m.composer.Height() {
		m.composer.SetHeight(h)
		m.layout()
	}
}

// resetComposer clears the composer after a send.
func (m *Model) resetComposer() {
	m.composer.Reset()
	m.composer.SetHeight(1)
	m.layout()
}
