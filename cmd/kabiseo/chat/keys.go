package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"kabiseo/internal/session"
)

// keyMap lists every binding the chat understands. Bindings that only make
// sense with a certain focus are filtered in helpBindings.
type keyMap struct {
	Send     key.Binding
	Newline  key.Binding
	Focus    key.Binding
	Prev     key.Binding
	Next     key.Binding
	Activate key.Binding
	Toggle   key.Binding
	AddID    key.Binding
	RemoveID key.Binding
	History  key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "전송"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "줄바꿈"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "버튼/입력 전환"),
		),
		Prev: key.NewBinding(
			key.WithKeys("up", "left", "shift+tab"),
			key.WithHelp("←/↑", "이전"),
		),
		Next: key.NewBinding(
			key.WithKeys("down", "right"),
			key.WithHelp("→/↓", "다음"),
		),
		Activate: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "선택"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "펼치기/선택"),
		),
		AddID: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "새 아이디"),
		),
		RemoveID: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "아이디 삭제"),
		),
		History: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "기록 새로고침"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "위로"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "아래로"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "뒤로"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "종료"),
		),
	}
}

// helpBindings returns the footer hints for the current focus.
func (m Model) helpBindings() []key.Binding {
	if m.inputMode == InputModeNewID {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "추가")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "취소")),
		}
	}

	if m.focus == FocusGroup {
		bindings := []key.Binding{m.keys.Prev, m.keys.Next, m.keys.Activate}
		switch m.focusedInteractive().(type) {
		case session.Cards:
			bindings = append(bindings, m.keys.Toggle)
		case session.MultiSelect:
			bindings = append(bindings, m.keys.Toggle, m.keys.AddID, m.keys.RemoveID)
		}
		return append(bindings, m.keys.Focus, m.keys.Quit)
	}

	bindings := []key.Binding{m.keys.Send, m.keys.Newline}
	if m.newestActiveGroup() != "" {
		bindings = append(bindings, m.keys.Focus)
	}
	return append(bindings, m.keys.History, m.keys.Quit)
}
