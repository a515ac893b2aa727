package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kabiseo/internal/session"
)

// =============================================================================
// VIEW RENDERING
// =============================================================================

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	input := m.styles.Input
	if m.focus == FocusComposer && m.inputMode == InputModeNormal {
		input = input.BorderForeground(m.styles.Theme.Primary)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderTyping(),
		input.Render(m.composer.View()),
		m.renderFooter(),
	)
}

func (m Model) statusLabel() string {
	switch m.state.Status {
	case session.StatusOnline:
		return m.styles.Online.Render("● 온라인")
	case session.StatusOffline:
		return m.styles.Offline.Render("● 연결 끊김")
	case session.StatusClosed:
		return m.styles.Muted.Render("● 종료됨")
	default:
		return m.styles.Connecting.Render("● 연결 중...")
	}
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" " + m.cfg.BotName + " ")
	who := ""
	if id := m.state.Identity; !id.Empty() {
		who = m.styles.Muted.Render(id.Name + " · " + maskPhone(id.Phone))
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		"  ",
		m.statusLabel(),
		"  ",
		who,
	)
	return lipgloss.JoinVertical(lipgloss.Left, headerLine, m.styles.RenderDivider(m.width))
}

// maskPhone hides the middle digits of a phone number.
func maskPhone(phone string) string {
	r := []rune(phone)
	if len(r) < 8 {
		return phone
	}
	for i := 3; i < len(r)-4; i++ {
		r[i] = '*'
	}
	return string(r)
}

func (m Model) renderTyping() string {
	if !m.state.Typing {
		return ""
	}
	return " " + m.spinner.View() + m.styles.Muted.Render(" "+m.cfg.BotName+" 입력 중...")
}

func (m Model) renderFooter() string {
	return m.styles.Footer.Render(m.help.ShortHelpView(m.helpBindings()))
}

// renderTranscript draws every entry in order.
func (m Model) renderTranscript() string {
	if len(m.state.Entries) == 0 {
		return m.styles.Muted.Render("  대화 기록이 없습니다.")
	}

	var sb strings.Builder
	for _, e := range m.state.Entries {
		if e.Sender == session.SenderUser {
			sb.WriteString(m.renderUserEntry(e))
		} else {
			sb.WriteString(m.renderBotEntry(e))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderUserEntry(e session.Entry) string {
	width := min(lipgloss.Width(e.Text)+2, m.bodyWidth()*3/4)
	bubble := m.styles.UserBubble.Width(width).Render(e.Text)
	line := bubble
	if stamp := formatStamp(e.Timestamp); stamp != "" {
		line = lipgloss.JoinHorizontal(lipgloss.Bottom, m.styles.Stamp.Render(stamp)+" ", bubble)
	}
	return lipgloss.PlaceHorizontal(m.bodyWidth(), lipgloss.Right, line) + "\n"
}

func (m Model) renderBotEntry(e session.Entry) string {
	var sb strings.Builder

	author := m.styles.Author.Render(m.cfg.BotName)
	if stamp := formatStamp(e.Timestamp); stamp != "" {
		author += " " + m.styles.Stamp.Render(stamp)
	}
	sb.WriteString(author + "\n")

	if body := m.renderBody(e.Text); body != "" {
		sb.WriteString(m.styles.BotBody.Render(body) + "\n")
	}
	if e.HasInteractive() {
		if in := m.renderInteractive(e); in != "" {
			sb.WriteString(in + "\n")
		}
	}
	return sb.String()
}
