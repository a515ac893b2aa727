package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"kabiseo/internal/logging"
	"kabiseo/internal/session"
)

// handleKeyMsg processes all keyboard input for the Update() function.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	// Global Keybindings
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.performShutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.History):
		return m.apply(session.RequestHistory{})

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfPageUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDn):
		m.viewport.HalfPageDown()
		return m, nil
	}

	if m.inputMode == InputModeNewID {
		return m.handleNewIDKey(msg)
	}
	if m.focus == FocusGroup {
		return m.handleGroupKey(msg)
	}
	return m.handleComposerKey(msg)
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.performShutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus):
		newest := m.newestActiveGroup()
		if newest == "" {
			return m, nil
		}
		m.setFocusGroup(newest)
		m.focus = FocusGroup
		m.composer.Blur()
		logging.UIDebug("focus: group %s", newest)
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keys.Send) && !msg.Alt:
		text := m.composer.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.resetComposer()
		return m.apply(session.SubmitText{Text: text})
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	m.fitComposer()
	return m, cmd
}

func (m Model) handleGroupKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Focus):
		// Tab walks back through the older ACTIVE groups, then returns
		// to the composer.
		if older := m.olderActiveGroup(m.focusGroup); older != "" {
			m.setFocusGroup(older)
			logging.UIDebug("focus: group %s", older)
			m.refreshTranscript()
			return m, nil
		}
		return m.focusComposer(), nil

	case key.Matches(msg, m.keys.Back):
		return m.focusComposer(), nil

	case key.Matches(msg, m.keys.Prev):
		m.moveCursor(-1)
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.moveCursor(1)
		m.refreshTranscript()
		return m, nil

	case key.Matches(msg, m.keys.Activate):
		if ev := m.activate(); ev != nil {
			return m.apply(ev)
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if ev := m.toggle(); ev != nil {
			return m.apply(ev)
		}
		return m, nil
	}

	ms, ok := m.focusedInteractive().(session.MultiSelect)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.AddID):
		if m.state.Draft(m.focusGroup).Count() >= ms.Max {
			return m, nil
		}
		m.inputMode = InputModeNewID
		m.newID.Reset()
		cmd := m.newID.Focus()
		m.refreshTranscript()
		return m, cmd

	case key.Matches(msg, m.keys.RemoveID):
		ids := m.state.Draft(m.focusGroup).NewIDs()
		if len(ids) == 0 {
			return m, nil
		}
		return m.apply(session.RemoveNewID{Group: m.focusGroup, ID: ids[len(ids)-1]})
	}
	return m, nil
}

// focusComposer returns keyboard focus to the composer. The cursor goes
// back to the newest group for the next Tab.
func (m Model) focusComposer() Model {
	m.focus = FocusComposer
	m.setFocusGroup(m.newestActiveGroup())
	m.composer.Focus()
	logging.UIDebug("focus: composer")
	m.refreshTranscript()
	return m
}

func (m Model) handleNewIDKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.exitNewID()
		m.refreshTranscript()
		return m, nil

	case tea.KeyEnter:
		id := strings.TrimSpace(m.newID.Value())
		group := m.focusGroup
		m.exitNewID()
		if id == "" {
			m.refreshTranscript()
			return m, nil
		}
		return m.apply(session.AddNewID{Group: group, ID: id})
	}

	var cmd tea.Cmd
	m.newID, cmd = m.newID.Update(msg)
	m.refreshTranscript()
	return m, cmd
}
