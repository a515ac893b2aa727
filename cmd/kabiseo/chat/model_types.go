package chat

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"kabiseo/cmd/kabiseo/ui"
	"kabiseo/internal/identity"
	"kabiseo/internal/session"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for initializing the chat interface.
type Config struct {
	Identity session.Identity

	// BotName labels bot entries and the typing row.
	BotName string

	// Theme is "auto", "light" or "dark".
	Theme string

	// MaxHeight is the composer's growth limit in lines.
	MaxHeight int

	// CharLimit caps a single message (0 = unlimited).
	CharLimit int

	QuickMenu session.QuickMenu
}

// Transport is the connection the chat drives. *transport.Client
// satisfies it.
type Transport interface {
	Start(ctx context.Context) error
	Events() <-chan session.Event
	Send(ctx context.Context, value string) error
	RequestHistory(ctx context.Context) error
	Close() error
}

// IdentityWatcher reports when the saved identity goes away.
// *identity.Watcher satisfies it.
type IdentityWatcher interface {
	Changes() <-chan identity.Change
	Stop()
}

// Focus is where keystrokes go.
type Focus int

const (
	FocusComposer Focus = iota // Default: typing a message
	FocusGroup                 // Navigating the newest active interactive group
)

// InputMode represents the current input handling state.
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeNewID            // Typing a fresh account id for a picker
)

// =============================================================================
// MESSAGES
// =============================================================================

type (
	// transportEventMsg carries one event off the transport channel.
	transportEventMsg struct{ event session.Event }

	// transportClosedMsg: the event channel closed.
	transportClosedMsg struct{}

	// transportStartMsg reports a failed Start.
	transportStartMsg struct{ err error }

	identityChangeMsg struct{ change identity.Change }

	// sendResultMsg reports the outcome of an outbound frame.
	sendResultMsg struct {
		what string
		err  error
	}
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the main model for the interactive chat interface
type Model struct {
	// UI Components
	composer textarea.Model
	newID    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	styles   ui.Styles
	renderer *glamour.TermRenderer
	cache    *ui.RenderCache

	cfg Config

	// Conversation
	reducer *session.Reducer
	state   session.State

	// Collaborators
	transport Transport
	watcher   IdentityWatcher
	outbound  *sendQueue // orders frames across send commands

	// Focus
	focus      Focus
	inputMode  InputMode
	focusGroup session.GroupID // group the cursor belongs to
	cursor     int             // index into focusTargets()
	newest     session.GroupID // newest active group seen by syncFocus

	// Card expansion, per group then card index
	expanded map[session.GroupID]map[int]bool

	// Layout
	width  int
	height int
	ready  bool

	// Lifecycle
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce *sync.Once
	exitReason   string
}
