package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"kabiseo/internal/session"
)

// Join builds the identity announcement.
func Join(id session.Identity) (Frame, error) {
	return NewFrame(EventJoin, JoinPayload{Name: id.Name, Phone: id.Phone})
}

// UserMessage builds the frame for a dispatched value.
func UserMessage(id session.Identity, message string) (Frame, error) {
	return NewFrame(EventUserMessage, UserMessagePayload{Name: id.Name, Phone: id.Phone, Message: message})
}

// RequestHistory builds a transcript replay request.
func RequestHistory(id session.Identity) (Frame, error) {
	return NewFrame(EventRequestHistory, RequestHistoryPayload{Name: id.Name, Phone: id.Phone})
}

// Decode maps a server frame onto a session event. Unknown events return
// ErrUnknownEvent; a known event with a malformed body returns a decode
// error. Neither is fatal to the connection.
func Decode(f Frame) (session.Event, error) {
	switch f.Event {
	case EventChatHistory:
		var p ChatHistoryPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		entries := make([]session.HistoryEntry, 0, len(p.Messages))
		for _, m := range p.Messages {
			entries = append(entries, session.HistoryEntry{
				Sender:    session.ParseSender(m.Sender),
				Text:      m.Message,
				Timestamp: m.Timestamp,
			})
		}
		return session.HistoryReplayed{Entries: entries}, nil

	case EventBotMessage:
		var p BotMessagePayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		return session.BotMessage{Text: p.Message, Interactive: p.Interactive()}, nil

	case EventBotTyping:
		var p TypingPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		return session.TypingChanged{Typing: p.Typing}, nil

	case EventError:
		var p ErrorPayload
		if err := unmarshal(f, &p); err != nil {
			// A garbled error is still an error worth showing.
			return session.ServerError{}, nil
		}
		return session.ServerError{Message: p.Message}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
}

func unmarshal(f Frame, v any) error {
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", f.Event, err)
	}
	return nil
}

// Interactive folds the optional sibling payloads into the single variant
// the entry carries. Cards win over a picker, and a picker wins over
// buttons; buttons sent alongside a picker become its extra buttons. Empty
// payloads yield nil.
func (p BotMessagePayload) Interactive() session.Interactive {
	if cards := convertCards(p.Cards); len(cards) > 0 {
		return session.Cards{Items: cards}
	}
	buttons := convertButtons(p.Buttons)
	if ms := p.MultiSelect; ms != nil && ms.MaxSelect >= 1 {
		items := convertItems(ms.Items)
		if len(items) > 0 {
			return session.MultiSelect{Max: ms.MaxSelect, Items: items, Extra: buttons}
		}
	}
	if len(buttons) > 0 {
		return session.Buttons{Items: buttons}
	}
	return nil
}

func convertButtons(in []ButtonPayload) []session.Button {
	var out []session.Button
	for _, b := range in {
		if strings.TrimSpace(b.Label) == "" && strings.TrimSpace(b.Value) == "" {
			continue
		}
		label := b.Label
		if strings.TrimSpace(label) == "" {
			label = b.Value
		}
		out = append(out, session.Button{
			Label: label,
			Value: b.Value,
			Style: session.ParseButtonStyle(b.Style),
		})
	}
	return out
}

func convertCards(in []CardPayload) []session.Card {
	var out []session.Card
	for _, c := range in {
		if strings.TrimSpace(c.Name) == "" && strings.TrimSpace(c.Value) == "" {
			continue
		}
		card := session.Card{
			Name:          c.Name,
			Store:         c.Store,
			Value:         c.Value,
			Remaining:     c.Remaining,
			Total:         c.Total,
			ProductPrice:  string(c.ProductPrice),
			ReviewFee:     string(c.ReviewFee),
			Platform:      c.Platform,
			BuyTime:       c.BuyTime,
			Closed:        c.Closed,
			ClosedReason:  c.ClosedReason,
			BuyTimeClosed: c.BuyTimeClosed,
			Urgent:        c.Urgent,
			DailyTarget:   c.DailyTarget,
			TodayDone:     c.TodayDone,
		}
		for _, h := range c.MyHistory {
			card.History = append(card.History, session.CardHistory{ID: h.ID, Status: h.Status})
		}
		out = append(out, card)
	}
	return out
}

func convertItems(in []SelectItemPayload) []session.SelectItem {
	var out []session.SelectItem
	seen := make(map[string]bool, len(in))
	for _, it := range in {
		id := strings.TrimSpace(it.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, session.SelectItem{ID: id, Disabled: it.Disabled, Reason: it.Reason})
	}
	return out
}
