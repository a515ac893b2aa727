// Package chat provides the interactive TUI for the reviewer assistant.
// The chat is split across multiple files:
//   - model_types.go: Config, collaborator interfaces, Model
//   - model.go: construction, Init, commands, effects, lifecycle (this file)
//   - model_update.go: Update loop and layout
//   - model_key_handler.go: keyboard handling
//   - interactive.go: focus targets and interactive payload rendering
//   - composer.go: auto-growing message composer
//   - content.go: message body formatting
//   - view.go: rendering
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"kabiseo/cmd/kabiseo/ui"
	"kabiseo/internal/identity"
	"kabiseo/internal/logging"
	"kabiseo/internal/session"
	"kabiseo/internal/transport"
)

const (
	defaultBotName = "카비서"
	renderCacheMax = 256
)

// New builds the chat model. watcher may be nil.
func New(cfg Config, tr Transport, watcher IdentityWatcher) Model {
	if strings.TrimSpace(cfg.BotName) == "" {
		cfg.BotName = defaultBotName
	}
	if cfg.MaxHeight < 1 {
		cfg.MaxHeight = 1
	}

	styles := ui.NewStyles(ui.ThemeFor(cfg.Theme))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	ni := textinput.New()
	ni.Placeholder = "새 아이디"
	ni.Prompt = "+ "
	ni.CharLimit = 64

	vp := viewport.New(80, 20)
	vp.SetContent("")

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		composer:     newComposer(cfg, styles),
		newID:        ni,
		viewport:     vp,
		spinner:      sp,
		help:         help.New(),
		keys:         defaultKeyMap(),
		styles:       styles,
		cache:        ui.NewRenderCache(renderCacheMax),
		cfg:          cfg,
		reducer:      session.NewReducer(cfg.QuickMenu),
		state:        session.NewState(cfg.Identity),
		transport:    tr,
		watcher:      watcher,
		outbound:     &sendQueue{},
		expanded:     make(map[session.GroupID]map[int]bool),
		width:        80,
		height:       24,
		ctx:          ctx,
		cancel:       cancel,
		shutdownOnce: &sync.Once{},
	}
	m.renderer = newRenderer(styles, m.bodyWidth())
	return m
}

func newRenderer(styles ui.Styles, width int) *glamour.TermRenderer {
	stylePath := "light"
	if styles.Theme.IsDark {
		stylePath = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(stylePath),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
		glamour.WithEmoji(),
	)
	if err != nil {
		logging.UIDebug("markdown renderer unavailable: %v", err)
		return nil
	}
	return renderer
}

// Run starts the program and blocks until the user quits or the identity
// is cleared. The returned string explains a non-user exit.
func Run(m Model) (string, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Shutdown()
		return fm.exitReason, err
	}
	m.Shutdown()
	return "", err
}

// State exposes the conversation for tests and the final exit message.
func (m Model) State() session.State {
	return m.state
}

// ExitReason is set when the chat ended on its own (identity cleared).
func (m Model) ExitReason() string {
	return m.exitReason
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.startTransport(),
		m.waitForEvent(),
		m.waitForIdentity(),
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) startTransport() tea.Cmd {
	if m.transport == nil {
		return nil
	}
	tr, ctx := m.transport, m.ctx
	return func() tea.Msg {
		if err := tr.Start(ctx); err != nil {
			return transportStartMsg{err: err}
		}
		return nil
	}
}

// waitForEvent blocks on the next transport event. Update re-arms it after
// every delivery.
func (m Model) waitForEvent() tea.Cmd {
	if m.transport == nil {
		return nil
	}
	events := m.transport.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return transportClosedMsg{}
		}
		return transportEventMsg{event: ev}
	}
}

func (m Model) waitForIdentity() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	changes := m.watcher.Changes()
	return func() tea.Msg {
		change, ok := <-changes
		if !ok {
			return nil
		}
		return identityChangeMsg{change: change}
	}
}

// =============================================================================
// EFFECTS
// =============================================================================

// apply runs one event through the reducer and turns the resulting effects
// into commands, preserving their order.
func (m Model) apply(ev session.Event) (Model, tea.Cmd) {
	next, effects := m.reducer.Reduce(m.state, ev)
	m.state = next
	m.syncFocus()
	m.refreshTranscript()

	if len(effects) == 0 {
		return m, nil
	}
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		if cmd := m.effectCmd(eff); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Sequence(cmds...)
}

// sendQueue chains outbound commands so frames leave in the order the
// reducer produced them. Bubble Tea runs every command on its own
// goroutine; each send waits for the one queued before it.
type sendQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// next reserves a slot: the caller waits on prev and closes done when its
// frame is written.
func (q *sendQueue) next() (prev <-chan struct{}, done chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == nil {
		q.tail = make(chan struct{})
		close(q.tail)
	}
	prev, done = q.tail, make(chan struct{})
	q.tail = done
	return prev, done
}

// ordered wraps send so it runs after every previously queued send.
func (m *Model) ordered(what string, send func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	prev, done := m.outbound.next()
	return func() tea.Msg {
		defer close(done)
		select {
		case <-prev:
		case <-ctx.Done():
			return sendResultMsg{what: what, err: ctx.Err()}
		}
		return sendResultMsg{what: what, err: send(ctx)}
	}
}

func (m *Model) effectCmd(eff session.Effect) tea.Cmd {
	tr := m.transport
	switch e := eff.(type) {
	case session.DispatchEffect:
		if tr == nil {
			return nil
		}
		return m.ordered("user_message", func(ctx context.Context) error {
			return tr.Send(ctx, e.Message)
		})

	case session.RequestHistoryEffect:
		if tr == nil {
			return nil
		}
		return m.ordered("request_history", tr.RequestHistory)

	case session.CloseEffect:
		m.Shutdown()
		return tea.Quit
	}
	return nil
}

func (m Model) handleSendResult(msg sendResultMsg) {
	switch {
	case msg.err == nil:
		logging.SessionDebug("%s sent", msg.what)
	case errors.Is(msg.err, transport.ErrNotConnected), errors.Is(msg.err, transport.ErrClosed):
		logging.SessionWarn("%s dropped: %v", msg.what, msg.err)
	default:
		logging.SessionWarn("%s failed: %v", msg.what, msg.err)
	}
}

func (m *Model) handleIdentityChange(c identity.Change) (Model, tea.Cmd) {
	switch c.Kind {
	case identity.Cleared:
		m.exitReason = "로그아웃되어 대화를 종료했습니다."
	case identity.Changed:
		m.exitReason = "다른 계정으로 로그인되어 대화를 종료했습니다."
	default:
		return *m, m.waitForIdentity()
	}
	logging.Session("identity %s, ending chat", c.Kind)
	return m.apply(session.IdentityCleared{})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Shutdown stops the transport and the identity watcher. Safe to call more
// than once.
func (m *Model) Shutdown() {
	m.shutdownOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		if m.transport != nil {
			if err := m.transport.Close(); err != nil {
				logging.SessionWarn("transport close: %v", err)
			}
		}
		if m.watcher != nil {
			m.watcher.Stop()
		}
	})
}

// performShutdown is a value-receiver wrapper for Shutdown() that can be
// called from Update().
func (m Model) performShutdown() {
	m.Shutdown()
}
