package chat

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"kabiseo/internal/identity"
	"kabiseo/internal/session"
	"kabiseo/internal/transport"
)

// =============================================================================
// FAKE COLLABORATORS
// =============================================================================

// fakeTransport records outbound traffic. Events pushed on events reach the
// model through waitForEvent.
type fakeTransport struct {
	mu        sync.Mutex
	events    chan session.Event
	sent      []string
	history   int
	started   bool
	closed    bool
	offline   bool
	closeOnce sync.Once

	// delay, when set, stalls Send before the value is recorded.
	delay func(value string) time.Duration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan session.Event, 16)}
}

func (f *fakeTransport) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeTransport) Events() <-chan session.Event { return f.events }

func (f *fakeTransport) Send(_ context.Context, value string) error {
	if f.delay != nil {
		time.Sleep(f.delay(value))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return transport.ErrNotConnected
	}
	f.sent = append(f.sent, value)
	return nil
}

func (f *fakeTransport) RequestHistory(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history++
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.events)
	})
	return nil
}

func (f *fakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeWatcher struct {
	changes chan identity.Change
	once    sync.Once
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{changes: make(chan identity.Change, 1)}
}

func (w *fakeWatcher) Changes() <-chan identity.Change { return w.changes }

func (w *fakeWatcher) Stop() {
	w.once.Do(func() { close(w.changes) })
}

// =============================================================================
// TEST MODEL BUILDER
// =============================================================================

// TestModelOption configures a test model.
type TestModelOption func(*Model)

// WithTransport wires a fake transport.
func WithTransport(tr Transport) TestModelOption {
	return func(m *Model) { m.transport = tr }
}

// WithWatcher wires a fake identity watcher.
func WithWatcher(w IdentityWatcher) TestModelOption {
	return func(m *Model) { m.watcher = w }
}

// WithMaxHeight overrides the composer growth limit.
func WithMaxHeight(h int) TestModelOption {
	return func(m *Model) { m.cfg.MaxHeight = h }
}

// WithEvents replays events through the reducer before the test starts.
func WithEvents(events ...session.Event) TestModelOption {
	return func(m *Model) {
		for _, ev := range events {
			*m, _ = m.apply(ev)
		}
	}
}

var testIdentity = session.Identity{Name: "김철수", Phone: "01012345678"}

// NewTestModel creates a minimal Model suitable for testing. The reducer
// clock and ids are deterministic.
func NewTestModel(opts ...TestModelOption) Model {
	m := New(Config{
		Identity:  testIdentity,
		Theme:     "light",
		MaxHeight: 3,
		CharLimit: 2000,
		QuickMenu: session.DefaultQuickMenu(),
	}, nil, nil)

	n := 0
	m.reducer.NewID = func() string {
		n++
		return fmt.Sprintf("e%03d", n)
	}
	m.reducer.Now = func() time.Time {
		return time.Date(2025, 3, 1, 9, 30, 20, 0, time.UTC)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)

	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// =============================================================================
// HELPERS
// =============================================================================

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func altEnter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter, Alt: true}
}

// press feeds keys to the model, running every resulting command that
// finishes quickly so effects reach the fake transport.
func press(t *testing.T, m Model, keys ...tea.KeyMsg) (Model, []tea.Msg) {
	t.Helper()
	var msgs []tea.Msg
	for _, k := range keys {
		updated, cmd := m.Update(k)
		m = updated.(Model)
		msgs = append(msgs, runCmd(cmd)...)
	}
	return m, msgs
}

// feed delivers transport events as if they arrived off the channel.
func feed(t *testing.T, m Model, events ...session.Event) Model {
	t.Helper()
	for _, ev := range events {
		updated, cmd := m.Update(transportEventMsg{event: ev})
		m = updated.(Model)
		runCmd(cmd)
	}
	return m
}

// runCmd executes cmd and nested batches/sequences, skipping commands
// that block (such as waitForEvent on an empty channel).
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(50 * time.Millisecond):
		return nil
	}

	// Batches and sequences are both slices of commands; the sequence type
	// is unexported.
	if v := reflect.ValueOf(msg); v.Kind() == reflect.Slice && v.Type().Elem() == reflect.TypeOf(tea.Cmd(nil)) {
		var out []tea.Msg
		for i := 0; i < v.Len(); i++ {
			out = append(out, runCmd(v.Index(i).Interface().(tea.Cmd))...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func hasQuit(msgs []tea.Msg) bool {
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}
