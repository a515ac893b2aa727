package session

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultErrorText is shown when the server reports an error without a
// message.
const DefaultErrorText = "오류가 발생했습니다."

// QuickMenu attaches a fixed set of buttons to plain bot prompts that look
// like a main-menu question.
type QuickMenu struct {
	Keywords []string
	Items    []Button
}

func (q QuickMenu) matches(text string) bool {
	if len(q.Items) == 0 {
		return false
	}
	for _, kw := range q.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// DefaultQuickMenu is the main menu offered by the reviewer assistant.
func DefaultQuickMenu() QuickMenu {
	return QuickMenu{
		Keywords: []string{"도와드릴까요", "선택해주세요"},
		Items: []Button{
			{Label: "체험단 신청", Value: "1"},
			{Label: "진행 상황", Value: "2"},
			{Label: "사진 제출", Value: "3"},
			{Label: "입금 현황", Value: "4"},
			{Label: "기타 문의", Value: "5"},
		},
	}
}

// Reducer is the single state-transition function of a conversation.
type Reducer struct {
	Now       func() time.Time
	NewID     func() string
	QuickMenu QuickMenu
}

// NewReducer returns a reducer on the wall clock with UUIDv7 entry ids.
func NewReducer(menu QuickMenu) *Reducer {
	return &Reducer{
		Now:       time.Now,
		NewID:     func() string { return uuid.Must(uuid.NewV7()).String() },
		QuickMenu: menu,
	}
}

func (r *Reducer) now() float64 {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	t := now()
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

func (r *Reducer) newID() EntryID {
	if r.NewID != nil {
		return EntryID(r.NewID())
	}
	return EntryID(uuid.Must(uuid.NewV7()).String())
}

// Reduce applies one event. The input state is never modified; the returned
// effects must be run in order.
func (r *Reducer) Reduce(s State, ev Event) (State, []Effect) {
	if s.Status == StatusClosed {
		// A discarded conversation accepts nothing further.
		return s, nil
	}

	switch ev := ev.(type) {
	case Connected:
		s.Status = StatusOnline
		return s, nil

	case Disconnected:
		s.Status = StatusOffline
		return s, nil

	case HistoryReplayed:
		entries := make([]Entry, 0, len(ev.Entries))
		for _, h := range ev.Entries {
			entries = append(entries, Entry{
				ID:        r.newID(),
				Sender:    h.Sender,
				Text:      h.Text,
				Timestamp: h.Timestamp,
			})
		}
		s.Entries = entries
		s.Groups = nil
		s.Drafts = nil
		return s, nil

	case BotMessage:
		s.Typing = false
		return r.appendBot(s, ev.Text, ev.Interactive), nil

	case TypingChanged:
		s.Typing = ev.Typing
		return s, nil

	case ServerError:
		msg := strings.TrimSpace(ev.Message)
		if msg == "" {
			msg = DefaultErrorText
		}
		return r.appendBot(s, msg, nil), nil

	case SubmitText:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return s, nil
		}
		return r.commit(s, Action{Value: text, Label: text})

	case TapButton:
		e, ok := r.actionable(s, ev.Group)
		if !ok {
			return s, nil
		}
		var items []Button
		switch p := e.Interactive.(type) {
		case Buttons:
			items = p.Items
		case MultiSelect:
			items = p.Extra
		}
		if ev.Index < 0 || ev.Index >= len(items) {
			return s, nil
		}
		b := items[ev.Index]
		return r.commit(s, Action{Value: b.Value, Label: b.Label})

	case SelectCard:
		e, ok := r.actionable(s, ev.Group)
		if !ok {
			return s, nil
		}
		cards, ok := e.Interactive.(Cards)
		if !ok || ev.Index < 0 || ev.Index >= len(cards.Items) {
			return s, nil
		}
		c := cards.Items[ev.Index]
		if !c.Selectable() {
			return s, nil
		}
		return r.commit(s, Action{Value: c.Value, Label: c.Name})

	case ToggleItem:
		return r.editDraft(s, ev.Group, func(d Draft, ms MultiSelect) (Draft, bool) {
			return d.Toggle(ms, ev.ItemID)
		}), nil

	case AddNewID:
		return r.editDraft(s, ev.Group, func(d Draft, ms MultiSelect) (Draft, bool) {
			return d.Add(ms, ev.ID)
		}), nil

	case RemoveNewID:
		return r.editDraft(s, ev.Group, func(d Draft, _ MultiSelect) (Draft, bool) {
			return d.Remove(ev.ID)
		}), nil

	case SubmitMultiSelect:
		e, ok := r.actionable(s, ev.Group)
		if !ok {
			return s, nil
		}
		ms, ok := e.Interactive.(MultiSelect)
		if !ok {
			return s, nil
		}
		d := s.Draft(ev.Group)
		if !d.Complete(ms.Max) {
			return s, nil
		}
		return r.commit(s, Action{Value: d.Encode(ms), Label: d.Label(ms)})

	case RequestHistory:
		return s, []Effect{RequestHistoryEffect{}}

	case IdentityCleared:
		return State{Identity: s.Identity, Status: StatusClosed}, []Effect{CloseEffect{}}
	}

	return s, nil
}

// appendBot adds a bot entry, registering an ACTIVE group for its payload.
// A message with neither text nor payload is dropped.
func (r *Reducer) appendBot(s State, text string, in Interactive) State {
	in = normalize(in)
	if in == nil && strings.TrimSpace(text) != "" && r.QuickMenu.matches(text) {
		in = Buttons{Items: slices.Clone(r.QuickMenu.Items)}
	}
	if in == nil && strings.TrimSpace(text) == "" {
		return s
	}

	e := Entry{
		ID:          r.newID(),
		Sender:      SenderBot,
		Text:        text,
		Timestamp:   r.now(),
		Interactive: in,
	}
	if in != nil {
		e.Group = GroupID(e.ID)
		s.Groups = append(slices.Clone(s.Groups), Group{ID: e.Group, Entry: e.ID, State: GroupActive})
	}
	s.Entries = append(slices.Clone(s.Entries), e)
	return s
}

// commit runs the turn-lock sequence for a user action: disable every
// ACTIVE group, echo the label, drop drafts, then dispatch the value.
func (r *Reducer) commit(s State, a Action) (State, []Effect) {
	s = disableAll(s)
	s.Entries = append(slices.Clone(s.Entries), Entry{
		ID:        r.newID(),
		Sender:    SenderUser,
		Text:      a.Label,
		Timestamp: r.now(),
	})
	s.Drafts = nil
	return s, []Effect{DispatchEffect{Message: a.Value}}
}

// disableAll moves every ACTIVE group to DISABLED.
func disableAll(s State) State {
	groups := slices.Clone(s.Groups)
	for i := range groups {
		groups[i].State = GroupDisabled
	}
	s.Groups = groups
	return s
}

// actionable returns the entry behind a group if the group is still ACTIVE.
func (r *Reducer) actionable(s State, id GroupID) (Entry, bool) {
	if !s.IsActive(id) {
		return Entry{}, false
	}
	return s.EntryForGroup(id)
}

func (r *Reducer) editDraft(s State, id GroupID, edit func(Draft, MultiSelect) (Draft, bool)) State {
	e, ok := r.actionable(s, id)
	if !ok {
		return s
	}
	ms, ok := e.Interactive.(MultiSelect)
	if !ok {
		return s
	}
	next, changed := edit(s.Draft(id), ms)
	if !changed {
		return s
	}
	drafts := maps.Clone(s.Drafts)
	if drafts == nil {
		drafts = make(map[GroupID]Draft)
	}
	drafts[id] = next
	s.Drafts = drafts
	return s
}

// normalize collapses empty payloads to nil so they render nothing.
func normalize(in Interactive) Interactive {
	switch p := in.(type) {
	case Buttons:
		if len(p.Items) == 0 {
			return nil
		}
	case Cards:
		if len(p.Items) == 0 {
			return nil
		}
	case MultiSelect:
		// Extra buttons alone are not a picker; the wire decoder holds
		// multi-selects to the same rule.
		if len(p.Items) == 0 || p.Max < 1 {
			return nil
		}
	}
	return in
}
