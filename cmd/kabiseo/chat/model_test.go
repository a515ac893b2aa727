package chat

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabiseo/internal/identity"
	"kabiseo/internal/session"
	"kabiseo/internal/transport"
)

func view(m Model) string {
	return ansi.Strip(m.View())
}

func transcript(m Model) string {
	return ansi.Strip(m.renderTranscript())
}

func findSendResult(msgs []tea.Msg) (sendResultMsg, bool) {
	for _, msg := range msgs {
		if res, ok := msg.(sendResultMsg); ok {
			return res, true
		}
	}
	return sendResultMsg{}, false
}

func entryTexts(m Model) []string {
	out := make([]string, 0, len(m.state.Entries))
	for _, e := range m.state.Entries {
		out = append(out, string(e.Sender)+":"+e.Text)
	}
	return out
}

var menuButtons = session.BotMessage{
	Text: "무엇을 도와드릴까요?",
	Interactive: session.Buttons{Items: []session.Button{
		{Label: "체험단 신청", Value: "1"},
		{Label: "진행 현황", Value: "2"},
		{Label: "취소", Value: "cancel", Style: session.StyleDanger},
	}},
}

var campaignCards = session.BotMessage{
	Text: "신청 가능한 캠페인입니다.",
	Interactive: session.Cards{Items: []session.Card{
		{
			Name: "유기농 샴푸", Store: "내추럴샵", Value: "campaign_7",
			Remaining: 3, Total: 10, ProductPrice: "15,900원", ReviewFee: "3,000원",
			Platform: "쿠팡", DailyTarget: 5, TodayDone: 2, Urgent: true,
			History: []session.CardHistory{{ID: "acc_a", Status: "입금완료"}},
		},
		{Name: "마감된 캠페인", Value: "campaign_8", Closed: true, ClosedReason: "모집 마감"},
	}},
}

var accountPicker = session.BotMessage{
	Text: "진행할 아이디를 선택하세요.",
	Interactive: session.MultiSelect{
		Max: 2,
		Items: []session.SelectItem{
			{ID: "acc_a", Disabled: true, Reason: "진행중"},
			{ID: "acc_b"},
		},
		Extra: []session.Button{{Label: "뒤로", Value: "back", Style: session.StyleSecondary}},
	},
}

// =============================================================================
// COMPOSER
// =============================================================================

func TestComposer_EnterSendsAndEchoes(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))

	m, _ = press(t, m, runes("  안녕하세요  "), keyMsg(tea.KeyEnter))

	assert.Equal(t, []string{"user:안녕하세요"}, entryTexts(m))
	assert.Equal(t, []string{"안녕하세요"}, tr.Sent())
	assert.Empty(t, m.composer.Value(), "composer cleared after send")
	assert.Equal(t, 1, m.composer.Height())
}

func TestComposer_BlankEnterIgnored(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))

	m, _ = press(t, m, runes("   "), keyMsg(tea.KeyEnter))

	assert.Empty(t, m.state.Entries)
	assert.Empty(t, tr.Sent())
}

func TestComposer_AltEnterInsertsNewline(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))

	m, _ = press(t, m, runes("첫 줄"), altEnter(), runes("둘째 줄"))

	assert.Equal(t, "첫 줄\n둘째 줄", m.composer.Value())
	assert.Empty(t, tr.Sent(), "alt+enter must not send")
	assert.Equal(t, 2, m.composer.Height())

	m, _ = press(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{"첫 줄\n둘째 줄"}, tr.Sent())
}

func TestComposer_GrowsToMaxHeight(t *testing.T) {
	m := NewTestModel(WithMaxHeight(3))
	vpBefore := m.viewport.Height

	for i := 0; i < 5; i++ {
		m, _ = press(t, m, runes("줄"), keyMsg(tea.KeyCtrlJ))
	}

	assert.Equal(t, 3, m.composer.Height(), "capped at max height")
	assert.Equal(t, vpBefore-2, m.viewport.Height, "transcript gives up the grown rows")

	// Lines past the visible cap still go into the message.
	tr := newFakeTransport()
	m.transport = tr
	m, _ = press(t, m, runes("끝"))
	assert.Equal(t, "줄\n줄\n줄\n줄\n줄\n끝", m.composer.Value())
	assert.Equal(t, 3, m.composer.Height())

	m, _ = press(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{"줄\n줄\n줄\n줄\n줄\n끝"}, tr.Sent())
	assert.Equal(t, 1, m.composer.Height())
}

func TestComposer_GrowsWithSoftWrap(t *testing.T) {
	m := NewTestModel(WithMaxHeight(3))
	vpBefore := m.viewport.Height
	require.Greater(t, m.composer.Width(), 60)
	require.Less(t, m.composer.Width(), 120)

	// 60 wide characters fill 120 columns: two rows, no newline.
	m, _ = press(t, m, runes(strings.Repeat("가", 60)))

	assert.Equal(t, 1, m.composer.LineCount())
	assert.Equal(t, 2, m.composer.Height())
	assert.Equal(t, vpBefore-1, m.viewport.Height)
}

func TestWrappedRows(t *testing.T) {
	assert.Equal(t, 1, wrappedRows("", 10))
	assert.Equal(t, 1, wrappedRows("abc", 10))
	assert.Equal(t, 2, wrappedRows("abcdefghij", 10), "a full row leaves the cursor on the next")
	assert.Equal(t, 3, wrappedRows("abcdefghijkl\nxy", 10))
	assert.Equal(t, 2, wrappedRows("가나다라마바", 10))
}

func TestComposer_SendsLeaveInOrder(t *testing.T) {
	tr := newFakeTransport()
	tr.delay = func(v string) time.Duration {
		if v == "first" {
			return 30 * time.Millisecond
		}
		return 0
	}
	m := NewTestModel(WithTransport(tr))

	m, _ = press(t, m, runes("first"))
	updated, first := m.Update(keyMsg(tea.KeyEnter))
	m = updated.(Model)
	m, _ = press(t, m, runes("second"))
	_, second := m.Update(keyMsg(tea.KeyEnter))
	require.NotNil(t, first)
	require.NotNil(t, second)

	// Bubble Tea runs each command on its own goroutine; start the later
	// one first.
	var wg sync.WaitGroup
	for _, cmd := range []tea.Cmd{second, first} {
		wg.Add(1)
		go func(cmd tea.Cmd) {
			defer wg.Done()
			cmd()
		}(cmd)
	}
	wg.Wait()

	assert.Equal(t, []string{"first", "second"}, tr.Sent())
}

func TestComposer_SendWhileOfflineStillEchoes(t *testing.T) {
	tr := newFakeTransport()
	tr.offline = true
	m := NewTestModel(WithTransport(tr))

	m, msgs := press(t, m, runes("hello"), keyMsg(tea.KeyEnter))

	assert.Equal(t, []string{"user:hello"}, entryTexts(m))
	res, ok := findSendResult(msgs)
	require.True(t, ok)
	assert.ErrorIs(t, res.err, transport.ErrNotConnected)

	// The failure is only logged.
	updated, cmd := m.Update(res)
	assert.Nil(t, cmd)
	assert.Equal(t, entryTexts(m), entryTexts(updated.(Model)))
}

// =============================================================================
// BUTTONS
// =============================================================================

func TestButtons_TabFocusesNewestGroupAndEnterActions(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))
	m = feed(t, m, menuButtons)

	m, _ = press(t, m, keyMsg(tea.KeyTab))
	require.Equal(t, FocusGroup, m.focus)
	assert.Contains(t, transcript(m), "› 체험단 신청")

	m, _ = press(t, m, keyMsg(tea.KeyRight), keyMsg(tea.KeyEnter))

	assert.Equal(t, []string{"2"}, tr.Sent(), "value is dispatched")
	assert.Equal(t, "user:진행 현황", entryTexts(m)[1], "label is echoed")
	assert.Empty(t, m.state.ActiveGroups(), "group disabled after action")
	assert.Equal(t, FocusComposer, m.focus, "focus returns to composer")
}

func TestButtons_TabWithoutActiveGroupStaysInComposer(t *testing.T) {
	m := NewTestModel()
	m, _ = press(t, m, keyMsg(tea.KeyTab))
	assert.Equal(t, FocusComposer, m.focus)
}

func TestButtons_TypingDisablesGroup(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))
	m = feed(t, m, menuButtons)

	m, _ = press(t, m, runes("직접 입력"), keyMsg(tea.KeyEnter))

	assert.Empty(t, m.state.ActiveGroups())
	m, _ = press(t, m, keyMsg(tea.KeyTab))
	assert.Equal(t, FocusComposer, m.focus, "disabled groups are not focusable")
	assert.Equal(t, []string{"직접 입력"}, tr.Sent())
}

func TestButtons_CursorClamped(t *testing.T) {
	m := NewTestModel(WithEvents(menuButtons))
	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeyLeft), keyMsg(tea.KeyLeft))
	assert.Equal(t, 0, m.cursor)

	m, _ = press(t, m, keyMsg(tea.KeyDown), keyMsg(tea.KeyDown), keyMsg(tea.KeyDown), keyMsg(tea.KeyDown))
	assert.Equal(t, 2, m.cursor)
}

func TestButtons_EscReturnsToComposer(t *testing.T) {
	m := NewTestModel(WithEvents(menuButtons))
	m, msgs := press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeyEsc))
	assert.Equal(t, FocusComposer, m.focus)
	assert.False(t, hasQuit(msgs), "esc in a group only leaves the group")
}

func TestFocus_TabReachesOlderActiveGroups(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr), WithEvents(menuButtons, campaignCards))
	require.Len(t, m.state.ActiveGroups(), 2)
	older, newer := m.state.ActiveGroups()[0].ID, m.state.ActiveGroups()[1].ID

	m, _ = press(t, m, keyMsg(tea.KeyTab))
	assert.Equal(t, newer, m.focusGroup, "Tab from the composer takes the newest group")

	m, _ = press(t, m, keyMsg(tea.KeyTab))
	require.Equal(t, FocusGroup, m.focus)
	assert.Equal(t, older, m.focusGroup)
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, transcript(m), "› 체험단 신청")

	m, _ = press(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{"1"}, tr.Sent())
	assert.Empty(t, m.state.ActiveGroups(), "any action disables every group")
	assert.Equal(t, FocusComposer, m.focus)
}

func TestFocus_TabCyclesBackToComposer(t *testing.T) {
	m := NewTestModel(WithEvents(menuButtons, campaignCards))
	newer := m.state.ActiveGroups()[1].ID

	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeyTab), keyMsg(tea.KeyTab))
	assert.Equal(t, FocusComposer, m.focus)

	m, _ = press(t, m, keyMsg(tea.KeyTab))
	assert.Equal(t, newer, m.focusGroup, "the next cycle starts at the newest group again")
}

func TestFocus_NewGroupTakesCursor(t *testing.T) {
	m := NewTestModel(WithEvents(menuButtons, campaignCards))
	older := m.state.ActiveGroups()[0].ID

	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeyTab))
	require.Equal(t, older, m.focusGroup)

	// Typing indicators and other non-group events leave focus alone.
	m = feed(t, m, session.TypingChanged{Typing: true})
	assert.Equal(t, older, m.focusGroup)

	m = feed(t, m, accountPicker)
	active := m.state.ActiveGroups()
	assert.Equal(t, active[len(active)-1].ID, m.focusGroup)
}

func TestQuickMenuAttachedToPlainPrompt(t *testing.T) {
	m := NewTestModel()
	m = feed(t, m, session.BotMessage{Text: "무엇을 도와드릴까요?"})

	require.NotEmpty(t, m.state.ActiveGroups())
	out := transcript(m)
	assert.Contains(t, out, "체험단 신청")
	assert.Contains(t, out, "기타 문의")
}

// =============================================================================
// CARDS
// =============================================================================

func TestCards_SpaceExpandsEnterSelects(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))
	m = feed(t, m, campaignCards)

	out := transcript(m)
	assert.Contains(t, out, "유기농 샴푸")
	assert.Contains(t, out, "3자리")
	assert.Contains(t, out, "마감 임박!")
	assert.Contains(t, out, "모집 마감")
	assert.NotContains(t, out, "상품금액", "cards start collapsed")

	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeySpace))
	out = transcript(m)
	assert.Contains(t, out, "상품금액: 15,900원")
	assert.Contains(t, out, "리뷰비: 3,000원")
	assert.Contains(t, out, "🏪 내추럴샵")
	assert.Contains(t, out, "금일 모집 : 3 / 5")
	assert.Contains(t, out, "acc_a - 입금완료 ✅")
	assert.Contains(t, out, "신청하기")

	m, _ = press(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{"campaign_7"}, tr.Sent())
	assert.Equal(t, "user:유기농 샴푸", entryTexts(m)[1])
}

func TestCards_EnterExpandsCollapsedCardBeforeSelecting(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr), WithEvents(campaignCards))

	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeyEnter))
	assert.Empty(t, tr.Sent(), "first Enter only opens the details")
	assert.Contains(t, transcript(m), "상품금액: 15,900원")
	assert.Contains(t, transcript(m), "신청하기")
	assert.NotEmpty(t, m.state.ActiveGroups())

	m, _ = press(t, m, keyMsg(tea.KeyEnter))
	assert.Equal(t, []string{"campaign_7"}, tr.Sent())
	assert.Equal(t, "user:유기농 샴푸", entryTexts(m)[1])
}

func TestCards_ClosedCardCannotBeSelected(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr), WithEvents(campaignCards))

	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeyDown), keyMsg(tea.KeySpace))
	assert.NotContains(t, transcript(m), "신청하기", "closed card has no apply action")

	m, _ = press(t, m, keyMsg(tea.KeyEnter))
	assert.Empty(t, tr.Sent())
	assert.NotEmpty(t, m.state.ActiveGroups(), "group stays active")
}

// =============================================================================
// MULTI-SELECT
// =============================================================================

func TestPicker_FullFlow(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))
	m = feed(t, m, accountPicker)

	out := transcript(m)
	assert.Contains(t, out, "acc_a - 진행중 🔒")
	assert.Contains(t, out, "☐ acc_b 선택")
	assert.Contains(t, out, "선택: 0/2개")
	assert.NotContains(t, out, "다음으로")

	// Select the listed id.
	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeySpace))
	assert.Contains(t, transcript(m), "☑ acc_b")
	assert.Contains(t, transcript(m), "선택: 1/2개")

	// Type a fresh id.
	m, _ = press(t, m, runes("a"))
	require.Equal(t, InputModeNewID, m.inputMode)
	m, _ = press(t, m, runes("fresh_1"), keyMsg(tea.KeyEnter))
	require.Equal(t, InputModeNormal, m.inputMode)

	out = transcript(m)
	assert.Contains(t, out, "fresh_1 ✕")
	assert.Contains(t, out, "선택: 2/2개")
	assert.Contains(t, out, "다음으로")
	assert.Empty(t, tr.Sent(), "nothing is sent until submit")

	// Move onto 다음으로 and submit.
	m, _ = press(t, m, keyMsg(tea.KeyDown), keyMsg(tea.KeyEnter))

	assert.Equal(t, []string{"__ms__acc_b,fresh_1"}, tr.Sent())
	assert.Equal(t, "user:acc_b, fresh_1", entryTexts(m)[1])
	assert.Empty(t, m.state.ActiveGroups())
}

func TestPicker_RemoveLastNewID(t *testing.T) {
	m := NewTestModel(WithEvents(accountPicker))

	m, _ = press(t, m, keyMsg(tea.KeyTab), runes("a"), runes("one"), keyMsg(tea.KeyEnter))
	require.Equal(t, []string{"one"}, m.state.Draft(m.focusGroup).NewIDs())

	m, _ = press(t, m, runes("x"))
	assert.Empty(t, m.state.Draft(m.focusGroup).NewIDs())
}

func TestPicker_EscCancelsNewID(t *testing.T) {
	m := NewTestModel(WithEvents(accountPicker))

	m, msgs := press(t, m, keyMsg(tea.KeyTab), runes("a"), runes("typo"), keyMsg(tea.KeyEsc))

	assert.Equal(t, InputModeNormal, m.inputMode)
	assert.Equal(t, FocusGroup, m.focus)
	assert.Empty(t, m.state.Draft(m.focusGroup).NewIDs())
	assert.False(t, hasQuit(msgs))
}

func TestPicker_AddIgnoredWhenFull(t *testing.T) {
	m := NewTestModel(WithEvents(accountPicker))

	m, _ = press(t, m, keyMsg(tea.KeyTab), runes("a"), runes("one"), keyMsg(tea.KeyEnter))
	m, _ = press(t, m, runes("a"), runes("two"), keyMsg(tea.KeyEnter))
	require.Equal(t, 2, m.state.Draft(m.focusGroup).Count())

	m, _ = press(t, m, runes("a"))
	assert.Equal(t, InputModeNormal, m.inputMode)
}

func TestPicker_ExtraButton(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr), WithEvents(accountPicker))

	// Targets: acc_b, 뒤로.
	m, _ = press(t, m, keyMsg(tea.KeyTab), keyMsg(tea.KeyDown), keyMsg(tea.KeyEnter))

	assert.Equal(t, []string{"back"}, tr.Sent())
	assert.Equal(t, "user:뒤로", entryTexts(m)[1])
}

// =============================================================================
// STATUS, TYPING, HISTORY
// =============================================================================

func TestHeader_ConnectionStatus(t *testing.T) {
	m := NewTestModel()
	assert.Contains(t, view(m), "연결 중...")

	m = feed(t, m, session.Connected{})
	assert.Contains(t, view(m), "온라인")

	m = feed(t, m, session.Disconnected{})
	assert.Contains(t, view(m), "연결 끊김")
	assert.Contains(t, view(m), "010****5678")
}

func TestTypingIndicator(t *testing.T) {
	m := NewTestModel()
	m = feed(t, m, session.TypingChanged{Typing: true})
	assert.Contains(t, view(m), "카비서 입력 중...")

	m = feed(t, m, session.BotMessage{Text: "답변"})
	assert.NotContains(t, view(m), "입력 중...")
}

func TestCtrlRRequestsHistory(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))

	press(t, m, keyMsg(tea.KeyCtrlR))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Equal(t, 1, tr.history)
}

func TestHistoryReplaceRerendersTranscript(t *testing.T) {
	m := NewTestModel(WithEvents(session.BotMessage{Text: "old"}))

	m = feed(t, m, session.HistoryReplayed{Entries: []session.HistoryEntry{
		{Sender: session.SenderUser, Text: "안녕", Timestamp: 1740821400},
		{Sender: session.SenderBot, Text: "반가워요", Timestamp: 1740821460},
	}})

	out := transcript(m)
	assert.NotContains(t, out, "old")
	assert.Contains(t, out, "안녕")
	assert.Contains(t, out, "반가워요")
}

func TestEmptyTranscriptPlaceholder(t *testing.T) {
	m := NewTestModel()
	assert.Contains(t, transcript(m), "대화 기록이 없습니다.")
}

func TestBotImagesRenderAsThumbnails(t *testing.T) {
	m := NewTestModel()
	m = feed(t, m, session.BotMessage{Text: "가이드입니다 [IMG:https://drive.google.com/file/d/abc123/view]"})

	out := transcript(m)
	assert.Contains(t, out, "https://drive.google.com/thumbnail?id=abc123&sz=w400")
	assert.NotContains(t, out, "[IMG:")
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestIdentityClearedEndsChat(t *testing.T) {
	tr := newFakeTransport()
	w := newFakeWatcher()
	m := NewTestModel(WithTransport(tr), WithWatcher(w), WithEvents(menuButtons))

	updated, cmd := m.Update(identityChangeMsg{change: identity.Change{Kind: identity.Cleared}})
	m = updated.(Model)

	assert.True(t, hasQuit(runCmd(cmd)))
	assert.Equal(t, session.StatusClosed, m.state.Status)
	assert.Empty(t, m.state.Entries, "transcript discarded")
	assert.True(t, tr.Closed())
	assert.Contains(t, m.ExitReason(), "로그아웃")

	_, ok := <-w.Changes()
	assert.False(t, ok, "watcher stopped")
}

func TestIdentityChangedEndsChat(t *testing.T) {
	m := NewTestModel(WithTransport(newFakeTransport()))

	updated, cmd := m.Update(identityChangeMsg{change: identity.Change{
		Kind:     identity.Changed,
		Identity: session.Identity{Name: "다른사람", Phone: "01099998888"},
	}})

	assert.True(t, hasQuit(runCmd(cmd)))
	assert.Contains(t, updated.(Model).ExitReason(), "다른 계정")
}

func TestCtrlCQuitsAndCloses(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))

	_, msgs := press(t, m, keyMsg(tea.KeyCtrlC))

	assert.True(t, hasQuit(msgs))
	assert.True(t, tr.Closed())
}

func TestEscInComposerQuits(t *testing.T) {
	m := NewTestModel(WithTransport(newFakeTransport()))
	_, msgs := press(t, m, keyMsg(tea.KeyEsc))
	assert.True(t, hasQuit(msgs))
}

func TestInitStartsTransport(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))

	runCmd(m.Init())

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.True(t, tr.started)
}

func TestWaitForEventDeliversAndReportsClose(t *testing.T) {
	tr := newFakeTransport()
	m := NewTestModel(WithTransport(tr))

	tr.events <- session.Connected{}
	msg := m.waitForEvent()()
	assert.Equal(t, transportEventMsg{event: session.Connected{}}, msg)

	require.NoError(t, tr.Close())
	assert.Equal(t, transportClosedMsg{}, m.waitForEvent()())
}

func TestViewBeforeReady(t *testing.T) {
	m := New(Config{Identity: testIdentity}, nil, nil)
	assert.Equal(t, "Initializing...", m.View())
}

func TestFooterHintsFollowFocus(t *testing.T) {
	m := NewTestModel(WithEvents(accountPicker))
	assert.Contains(t, view(m), "줄바꿈")

	m, _ = press(t, m, keyMsg(tea.KeyTab))
	footer := ansi.Strip(m.renderFooter())
	assert.Contains(t, footer, "새 아이디")
	assert.False(t, strings.Contains(footer, "줄바꿈"))
}
