package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kabiseo/internal/session"
)

// =============================================================================
// FOCUS TARGETS
// =============================================================================

type targetKind int

const (
	targetButton targetKind = iota // Buttons.Items[index]
	targetCard                     // Cards.Items[index]
	targetItem                     // MultiSelect item id
	targetSubmit                   // MultiSelect 다음으로
	targetExtra                    // MultiSelect.Extra[index]
)

// target is one focusable control inside an interactive group.
type target struct {
	kind  targetKind
	index int
	id    string
}

// newestActiveGroup is the group Tab reaches first from the composer.
func (m Model) newestActiveGroup() session.GroupID {
	active := m.state.ActiveGroups()
	if len(active) == 0 {
		return ""
	}
	return active[len(active)-1].ID
}

// olderActiveGroup is the ACTIVE group shown before gid, or "" when gid is
// the oldest one.
func (m Model) olderActiveGroup(gid session.GroupID) session.GroupID {
	active := m.state.ActiveGroups()
	for i := len(active) - 1; i > 0; i-- {
		if active[i].ID == gid {
			return active[i-1].ID
		}
	}
	return ""
}

// setFocusGroup moves the cursor into gid, starting at its first control.
func (m *Model) setFocusGroup(gid session.GroupID) {
	if gid == m.focusGroup {
		return
	}
	m.focusGroup = gid
	m.cursor = 0
	m.exitNewID()
}

func (m Model) focusedInteractive() session.Interactive {
	if m.focusGroup == "" {
		return nil
	}
	e, ok := m.state.EntryForGroup(m.focusGroup)
	if !ok {
		return nil
	}
	return e.Interactive
}

// focusTargets lists the controls of the focused group in display order.
func (m Model) focusTargets() []target {
	var out []target
	switch in := m.focusedInteractive().(type) {
	case session.Buttons:
		for i := range in.Items {
			out = append(out, target{kind: targetButton, index: i})
		}
	case session.Cards:
		for i := range in.Items {
			out = append(out, target{kind: targetCard, index: i})
		}
	case session.MultiSelect:
		for _, it := range in.Items {
			if !it.Disabled {
				out = append(out, target{kind: targetItem, id: it.ID})
			}
		}
		if m.state.Draft(m.focusGroup).Complete(in.Max) {
			out = append(out, target{kind: targetSubmit})
		}
		for i := range in.Extra {
			out = append(out, target{kind: targetExtra, index: i})
		}
	}
	return out
}

func (m Model) currentTarget() (target, bool) {
	targets := m.focusTargets()
	if m.cursor < 0 || m.cursor >= len(targets) {
		return target{}, false
	}
	return targets[m.cursor], true
}

// syncFocus keeps focus consistent with the state after a reduction.
// A newly arrived group takes the cursor. A focused group that is no
// longer ACTIVE hands it to the newest one, or to the composer when none
// is left.
func (m *Model) syncFocus() {
	newest := m.newestActiveGroup()
	switch {
	case newest != m.newest:
		m.newest = newest
		m.setFocusGroup(newest)
	case m.focusGroup == "" || !m.state.IsActive(m.focusGroup):
		m.setFocusGroup(newest)
	}
	if m.focusGroup == "" {
		m.focus = FocusComposer
	}
	if n := len(m.focusTargets()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if m.focus == FocusComposer && m.inputMode == InputModeNormal {
		m.composer.Focus()
	} else {
		m.composer.Blur()
	}
	for gid := range m.expanded {
		if !m.state.IsActive(gid) {
			delete(m.expanded, gid)
		}
	}
}

func (m *Model) moveCursor(delta int) {
	n := len(m.focusTargets())
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
}

// activate handles Enter on the current target and returns the event to
// reduce, or nil. A collapsed card expands first so the reviewer sees its
// details before applying.
func (m *Model) activate() session.Event {
	t, ok := m.currentTarget()
	if !ok {
		return nil
	}
	switch t.kind {
	case targetButton, targetExtra:
		return session.TapButton{Group: m.focusGroup, Index: t.index}
	case targetCard:
		if !m.expanded[m.focusGroup][t.index] {
			m.toggle()
			return nil
		}
		return session.SelectCard{Group: m.focusGroup, Index: t.index}
	case targetItem:
		return session.ToggleItem{Group: m.focusGroup, ItemID: t.id}
	case targetSubmit:
		return session.SubmitMultiSelect{Group: m.focusGroup}
	}
	return nil
}

// toggle handles Space on the current target. Cards expand locally; picker
// items return a ToggleItem event.
func (m *Model) toggle() session.Event {
	t, ok := m.currentTarget()
	if !ok {
		return nil
	}
	switch t.kind {
	case targetCard:
		cards := m.expanded[m.focusGroup]
		if cards == nil {
			cards = make(map[int]bool)
			m.expanded[m.focusGroup] = cards
		}
		cards[t.index] = !cards[t.index]
		m.refreshTranscript()
	case targetItem:
		return session.ToggleItem{Group: m.focusGroup, ItemID: t.id}
	}
	return nil
}

func (m *Model) exitNewID() {
	if m.inputMode == InputModeNewID {
		m.inputMode = InputModeNormal
		m.newID.Reset()
		m.newID.Blur()
		m.layout()
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// renderInteractive draws an entry's payload. Disabled groups render muted
// and never show a cursor.
func (m Model) renderInteractive(e session.Entry) string {
	active := m.state.IsActive(e.Group)
	cursor := -1
	if active && m.focus == FocusGroup && e.Group == m.focusGroup {
		cursor = m.cursor
	}

	switch in := e.Interactive.(type) {
	case session.Buttons:
		return m.renderButtons(in.Items, !active, cursor, 0)
	case session.Cards:
		return m.renderCards(e.Group, in, !active, cursor)
	case session.MultiSelect:
		return m.renderPicker(e.Group, in, !active, cursor)
	}
	return ""
}

func (m Model) focusMark(focused bool) string {
	if focused {
		return "›"
	}
	return " "
}

// renderButtons draws a row of buttons. offset is the target index of the
// first button, for pickers whose extras follow the items.
func (m Model) renderButtons(items []session.Button, disabled bool, cursor, offset int) string {
	if len(items) == 0 {
		return ""
	}
	cells := make([]string, 0, len(items))
	for i, b := range items {
		focused := cursor == offset+i
		style := m.styles.ButtonStyle(b.Style, disabled)
		if focused {
			style = style.Inherit(m.styles.Focused)
		}
		cells = append(cells, m.focusMark(focused)+style.Render(b.Label))
	}
	return lipgloss.NewStyle().Width(m.bodyWidth()).Render(strings.Join(cells, " "))
}

func (m Model) renderCards(gid session.GroupID, cards session.Cards, disabled bool, cursor int) string {
	rendered := make([]string, 0, len(cards.Items))
	for i, c := range cards.Items {
		rendered = append(rendered, m.renderCard(c, m.expanded[gid][i], disabled, cursor == i))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func (m Model) renderCard(c session.Card, open, disabled, focused bool) string {
	closed := c.IsClosed()

	arrow := "▸"
	if open {
		arrow = "▾"
	}
	title := m.styles.Bold.Render(c.Name)
	if focused {
		title = m.styles.Bold.Inherit(m.styles.Focused).Render(c.Name)
	}

	var badges []string
	if closed {
		reason := c.ClosedReason
		if strings.TrimSpace(reason) == "" {
			reason = "마감"
		}
		badges = append(badges, m.styles.BadgeMuted.Render(reason))
	} else {
		badges = append(badges, m.styles.Badge.Render(fmt.Sprintf("%d자리", c.Remaining)))
		if c.Urgent {
			badges = append(badges, m.styles.BadgeHot.Render("마감 임박!"))
		}
	}
	lines := []string{m.focusMark(focused) + arrow + " " + title + " " + strings.Join(badges, " ")}

	if open {
		lines = append(lines, m.cardDetails(c)...)
		if !closed {
			lines = append(lines, m.styles.ButtonStyle(session.StyleDefault, disabled).Render("신청하기"))
		}
	}

	style := m.styles.Card
	if closed || disabled {
		style = m.styles.CardClosed
	}
	return style.Width(m.bodyWidth() - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) cardDetails(c session.Card) []string {
	muted := m.styles.Muted
	var out []string
	add := func(format string, args ...any) {
		out = append(out, muted.Render(fmt.Sprintf(format, args...)))
	}

	if c.Store != "" {
		add("🏪 %s", c.Store)
	}
	if c.ProductPrice != "" {
		add("상품금액: %s", c.ProductPrice)
	}
	if c.ReviewFee != "" {
		add("리뷰비: %s", c.ReviewFee)
	}
	if c.Platform != "" {
		add("%s", c.Platform)
	}
	add("👥 총 모집인원 : %d명 (남은자리: %d / %d)", c.DisplayTotal(), c.Remaining, c.DisplayTotal())
	if left := c.DailyRemaining(); left >= 0 {
		add("📊 금일 모집 : %d / %d (남은자리 / 금일목표)", left, c.DailyTarget)
	}
	if c.BuyTime != "" {
		add("구매시간: %s", c.BuyTime)
	}
	if len(c.History) > 0 {
		out = append(out, m.styles.Bold.Render("📌 내 진행 이력:"))
		for _, h := range c.History {
			line := fmt.Sprintf("  %s - %s", h.ID, h.Status)
			if emoji := statusEmoji(h.Status); emoji != "" {
				line += " " + emoji
			}
			out = append(out, muted.Render(line))
		}
	}
	return out
}

func (m Model) renderPicker(gid session.GroupID, ms session.MultiSelect, disabled bool, cursor int) string {
	draft := m.state.Draft(gid)
	var lines []string

	idx := 0 // target index of enabled items
	for _, it := range ms.Items {
		if it.Disabled {
			reason := it.Reason
			if strings.TrimSpace(reason) == "" {
				reason = "진행중"
			}
			lines = append(lines, "  "+m.styles.PickerLocked.Render(fmt.Sprintf("%s - %s 🔒", it.ID, reason)))
			continue
		}
		focused := cursor == idx
		idx++

		var label string
		style := m.styles.PickerItem
		if draft.IsSelected(it.ID) {
			label = "☑ " + it.ID
			style = m.styles.PickerSelected
		} else {
			label = "☐ " + it.ID + " 선택"
		}
		if disabled {
			style = m.styles.PickerLocked
		} else if focused {
			style = style.Inherit(m.styles.Focused)
		}
		lines = append(lines, m.focusMark(focused)+style.Render(label))
	}

	if ids := draft.NewIDs(); len(ids) > 0 {
		tags := make([]string, 0, len(ids))
		for _, id := range ids {
			tags = append(tags, m.styles.Tag.Render(id+" ✕"))
		}
		lines = append(lines, "  "+strings.Join(tags, " "))
	}

	lines = append(lines, "  "+m.styles.Muted.Render(fmt.Sprintf("선택: %d/%d개", draft.Count(), ms.Max)))

	if !disabled {
		if m.inputMode == InputModeNewID && gid == m.focusGroup {
			lines = append(lines, "  "+m.newID.View())
		} else if draft.Count() < ms.Max {
			lines = append(lines, "  "+m.styles.Muted.Render("a: 새 아이디 입력 · x: 마지막 아이디 삭제"))
		}
	}

	if draft.Complete(ms.Max) && !disabled {
		focused := cursor == idx
		style := m.styles.Button
		if focused {
			style = style.Inherit(m.styles.Focused)
		}
		lines = append(lines, m.focusMark(focused)+style.Render("다음으로"))
		idx++
	}

	if row := m.renderButtons(ms.Extra, disabled, cursor, idx); row != "" {
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}
