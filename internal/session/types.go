// Package session holds the conversation state of one reviewer chat and the
// reducer that drives it. Nothing in here performs I/O: transport events and
// user gestures come in as Events, and the reducer answers with a new State
// plus the Effects the caller must run (dispatching to the server, closing
// the connection).
package session

import "strings"

// Identity is the {name, phone} pair a conversation is keyed by.
type Identity struct {
	Name  string `yaml:"name" json:"name"`
	Phone string `yaml:"phone" json:"phone"`
}

// Empty reports whether either half of the identity is missing.
func (i Identity) Empty() bool {
	return strings.TrimSpace(i.Name) == "" || strings.TrimSpace(i.Phone) == ""
}

// Sender identifies who authored a transcript entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ParseSender maps a wire sender onto a Sender. Anything that is not "user"
// is treated as the bot.
func ParseSender(s string) Sender {
	if strings.EqualFold(strings.TrimSpace(s), string(SenderUser)) {
		return SenderUser
	}
	return SenderBot
}

// EntryID identifies a transcript entry locally. IDs are time ordered but
// never sent to the server.
type EntryID string

// GroupID identifies the interactive group rendered for one entry.
type GroupID string

// Entry is one line of the transcript.
type Entry struct {
	ID          EntryID
	Sender      Sender
	Text        string
	Timestamp   float64 // seconds since epoch
	Interactive Interactive
	Group       GroupID // empty when Interactive is nil
}

// HasInteractive reports whether the entry carries an actionable payload.
func (e Entry) HasInteractive() bool {
	return e.Interactive != nil && e.Group != ""
}

// =============================================================================
// INTERACTIVE PAYLOADS
// =============================================================================

// Interactive is the optional actionable payload of a bot entry. The
// implementations are Buttons, Cards and MultiSelect; an entry carries at
// most one of them.
type Interactive interface {
	isInteractive()
}

// ButtonStyle affects presentation only.
type ButtonStyle int

const (
	StyleDefault ButtonStyle = iota
	StyleSecondary
	StyleDanger
)

// ParseButtonStyle maps a wire style onto a ButtonStyle. Unknown values fall
// back to StyleDefault.
func ParseButtonStyle(s string) ButtonStyle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "secondary":
		return StyleSecondary
	case "danger":
		return StyleDanger
	default:
		return StyleDefault
	}
}

func (s ButtonStyle) String() string {
	switch s {
	case StyleSecondary:
		return "secondary"
	case StyleDanger:
		return "danger"
	default:
		return "default"
	}
}

// Button is a single inline choice. Value is what the server receives,
// Label is what the transcript shows.
type Button struct {
	Label string
	Value string
	Style ButtonStyle
}

// Buttons is an ordered group of inline buttons.
type Buttons struct {
	Items []Button
}

func (Buttons) isInteractive() {}

// CardHistory is one of the reviewer's previous runs of a campaign.
type CardHistory struct {
	ID     string
	Status string
}

// Card summarizes a campaign the reviewer may apply to.
type Card struct {
	Name          string
	Store         string
	Value         string
	Remaining     int
	Total         int
	ProductPrice  string
	ReviewFee     string
	Platform      string
	BuyTime       string
	Closed        bool
	ClosedReason  string
	BuyTimeClosed bool
	Urgent        bool
	DailyTarget   int
	TodayDone     int
	History       []CardHistory
}

// IsClosed reports whether the campaign no longer accepts applications,
// either explicitly or because its purchase window has passed.
func (c Card) IsClosed() bool {
	return c.Closed || c.BuyTimeClosed
}

// Selectable reports whether the card offers a select action.
func (c Card) Selectable() bool {
	return !c.IsClosed()
}

// DisplayTotal is the recruitment total, falling back to Remaining when the
// server did not send one.
func (c Card) DisplayTotal() int {
	if c.Total > 0 {
		return c.Total
	}
	return c.Remaining
}

// DailyRemaining is the number of slots left today, or -1 when the campaign
// has no daily target.
func (c Card) DailyRemaining() int {
	if c.DailyTarget <= 0 {
		return -1
	}
	left := c.DailyTarget - c.TodayDone
	if left < 0 {
		return 0
	}
	return left
}

// Cards is an ordered list of campaign summaries.
type Cards struct {
	Items []Card
}

func (Cards) isInteractive() {}

// SelectItem is a pre-listed account id in a multi-select picker.
type SelectItem struct {
	ID       string
	Disabled bool
	Reason   string
}

// MultiSelect asks the reviewer to choose exactly Max ids, from Items and/or
// freshly typed ones. Extra holds auxiliary buttons (such as "back") the
// server attaches to the picker; they share the picker's group.
type MultiSelect struct {
	Max   int
	Items []SelectItem
	Extra []Button
}

func (MultiSelect) isInteractive() {}

// Item returns the pre-listed item with the given id.
func (m MultiSelect) Item(id string) (SelectItem, bool) {
	for _, it := range m.Items {
		if it.ID == id {
			return it, true
		}
	}
	return SelectItem{}, false
}

// Action is the uniform (value, label) pair every interactive variant
// produces when actioned.
type Action struct {
	Value string
	Label string
}

// =============================================================================
// TURN-LOCK RECORDS
// =============================================================================

// GroupState is the lifecycle of a rendered interactive group. Disabled is
// terminal.
type GroupState int

const (
	GroupActive GroupState = iota
	GroupDisabled
)

func (s GroupState) String() string {
	if s == GroupDisabled {
		return "DISABLED"
	}
	return "ACTIVE"
}

// Group records the turn-lock state of one interactive payload.
type Group struct {
	ID    GroupID
	Entry EntryID
	State GroupState
}

// ConnStatus is the connection status shown to the user.
type ConnStatus int

const (
	StatusConnecting ConnStatus = iota
	StatusOnline
	StatusOffline
	StatusClosed
)

func (s ConnStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	case StatusClosed:
		return "closed"
	default:
		return "connecting"
	}
}

// State is the full conversation state of one identity.
type State struct {
	Identity Identity
	Status   ConnStatus
	Entries  []Entry
	Groups   []Group
	Drafts   map[GroupID]Draft
	Typing   bool
}

// NewState returns the empty state for an identity.
func NewState(id Identity) State {
	return State{Identity: id, Status: StatusConnecting}
}

// Entry looks up a transcript entry by id.
func (s State) Entry(id EntryID) (Entry, bool) {
	for _, e := range s.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// EntryForGroup returns the entry that produced a group.
func (s State) EntryForGroup(id GroupID) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Group == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Group looks up a turn-lock record.
func (s State) Group(id GroupID) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// IsActive reports whether a group may still be actioned.
func (s State) IsActive(id GroupID) bool {
	g, ok := s.Group(id)
	return ok && g.State == GroupActive
}

// ActiveGroups returns the groups still in GroupActive, oldest first.
func (s State) ActiveGroups() []Group {
	var out []Group
	for _, g := range s.Groups {
		if g.State == GroupActive {
			out = append(out, g)
		}
	}
	return out
}

// Draft returns the unsent picker selection for a group.
func (s State) Draft(id GroupID) Draft {
	return s.Drafts[id]
}
