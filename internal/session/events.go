package session

// Event is anything that can change the conversation: a server push, a
// connection transition, or a user gesture.
type Event interface {
	isEvent()
}

// HistoryEntry is one replayed transcript line. Replays never carry
// interactive payloads.
type HistoryEntry struct {
	Sender    Sender
	Text      string
	Timestamp float64
}

// Transport events.
type (
	// Connected fires after the join frame went out on a fresh connection.
	Connected struct{}

	// Disconnected fires when the connection drops. The transport redials
	// on its own.
	Disconnected struct{ Err error }

	// HistoryReplayed carries the full transcript for the identity.
	HistoryReplayed struct{ Entries []HistoryEntry }

	// BotMessage is a bot push with optional text and payload.
	BotMessage struct {
		Text        string
		Interactive Interactive
	}

	// TypingChanged toggles the "bot is typing" affordance.
	TypingChanged struct{ Typing bool }

	// ServerError is an error pushed by the server. It is shown in the
	// transcript and does not end the session.
	ServerError struct{ Message string }
)

// User gestures.
type (
	SubmitText struct{ Text string }

	// TapButton actions a button of a Buttons group, or an extra button of a
	// MultiSelect group.
	TapButton struct {
		Group GroupID
		Index int
	}

	SelectCard struct {
		Group GroupID
		Index int
	}

	ToggleItem struct {
		Group  GroupID
		ItemID string
	}

	AddNewID struct {
		Group GroupID
		ID    string
	}

	RemoveNewID struct {
		Group GroupID
		ID    string
	}

	SubmitMultiSelect struct{ Group GroupID }

	RequestHistory struct{}

	// IdentityCleared ends the conversation locally (logout).
	IdentityCleared struct{}
)

func (Connected) isEvent()         {}
func (Disconnected) isEvent()      {}
func (HistoryReplayed) isEvent()   {}
func (BotMessage) isEvent()        {}
func (TypingChanged) isEvent()     {}
func (ServerError) isEvent()       {}
func (SubmitText) isEvent()        {}
func (TapButton) isEvent()         {}
func (SelectCard) isEvent()        {}
func (ToggleItem) isEvent()        {}
func (AddNewID) isEvent()          {}
func (RemoveNewID) isEvent()       {}
func (SubmitMultiSelect) isEvent() {}
func (RequestHistory) isEvent()    {}
func (IdentityCleared) isEvent()   {}

// Effect is work the caller must perform after a reduction, in order.
type Effect interface {
	isEffect()
}

type (
	// DispatchEffect sends a user_message whose message is the dispatched
	// value (not the echoed label).
	DispatchEffect struct{ Message string }

	RequestHistoryEffect struct{}

	// CloseEffect tears the connection down for good.
	CloseEffect struct{}
)

func (DispatchEffect) isEffect()       {}
func (RequestHistoryEffect) isEffect() {}
func (CloseEffect) isEffect()          {}
