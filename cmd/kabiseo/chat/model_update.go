package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"kabiseo/internal/logging"
)

const (
	headerHeight = 2 // title line + divider
	typingHeight = 1 // spinner row, reserved so the transcript doesn't jump
	footerHeight = 1
	inputChrome  = 2 // composer border
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		logging.UI("window resized to %dx%d", msg.Width, msg.Height)
		m.renderer = newRenderer(m.styles, m.bodyWidth())
		m.cache.Clear()
		m.layout()
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case transportEventMsg:
		logging.UIDebug("event %T", msg.event)
		var cmd tea.Cmd
		m, cmd = m.apply(msg.event)
		return m, tea.Batch(cmd, m.waitForEvent())

	case transportClosedMsg:
		logging.UIDebug("transport event channel closed")
		return m, nil

	case transportStartMsg:
		logging.SessionWarn("transport failed to start: %v", msg.err)
		m.exitReason = "서버에 연결할 수 없습니다: " + msg.err.Error()
		m.performShutdown()
		return m, tea.Quit

	case identityChangeMsg:
		return m.handleIdentityChange(msg.change)

	case sendResultMsg:
		m.handleSendResult(msg)
		return m, nil
	}

	// Cursor blink and other component messages.
	var cmd tea.Cmd
	if m.inputMode == InputModeNewID {
		m.newID, cmd = m.newID.Update(msg)
	} else {
		m.composer, cmd = m.composer.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

// bodyWidth is the usable width inside the content padding.
func (m Model) bodyWidth() int {
	return max(m.width-4, 20)
}

// layout sizes the viewport and inputs for the current window and composer
// height.
func (m *Model) layout() {
	inner := max(m.width-4, 10)
	m.composer.SetWidth(inner)
	m.newID.Width = max(inner-4, 10)
	m.help.Width = m.width

	vpHeight := m.height - headerHeight - typingHeight - footerHeight - inputChrome - m.composer.Height()
	m.viewport.Width = max(m.width-2, 10)
	m.viewport.Height = max(vpHeight, 3)
}

// refreshTranscript re-renders the transcript and follows the bottom when
// the reader was already there.
func (m *Model) refreshTranscript() {
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}
