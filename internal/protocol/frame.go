// Package protocol defines the JSON frames exchanged with the reviewer chat
// server and maps them onto session events.
//
// Every WebSocket text message carries one Frame:
//
//	{"event": "bot_message", "data": {...}}
//
// The event names and payload shapes are those of the chat server; this
// package only owns their Go representation.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names.
const (
	EventJoin           = "join"
	EventUserMessage    = "user_message"
	EventRequestHistory = "request_history"

	EventChatHistory = "chat_history"
	EventBotMessage  = "bot_message"
	EventBotTyping   = "bot_typing"
	EventError       = "error"
)

// ErrUnknownEvent is returned by Decode for events the client does not handle.
var ErrUnknownEvent = errors.New("protocol: unknown event")

// Frame is the envelope of every message on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals data into a frame for event.
func NewFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", event, err)
	}
	return Frame{Event: event, Data: raw}, nil
}

// =============================================================================
// CLIENT → SERVER
// =============================================================================

// JoinPayload announces the identity. It is sent on every (re)connect.
type JoinPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UserMessagePayload carries a dispatched value. Message is the value, not
// the label shown locally.
type UserMessagePayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// RequestHistoryPayload asks the server to replay the transcript.
type RequestHistoryPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// =============================================================================
// SERVER → CLIENT
// =============================================================================

// HistoryMessage is one replayed line.
type HistoryMessage struct {
	Sender    string  `json:"sender"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// ChatHistoryPayload is the wholesale transcript replay.
type ChatHistoryPayload struct {
	Messages []HistoryMessage `json:"messages"`
}

// ButtonPayload is one inline button.
type ButtonPayload struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Style string `json:"style,omitempty"`
}

// CardHistoryPayload is one of the reviewer's runs of a campaign.
type CardHistoryPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CardPayload is a campaign summary.
type CardPayload struct {
	Name          string               `json:"name"`
	Store         string               `json:"store"`
	Value         string               `json:"value"`
	Remaining     int                  `json:"remaining"`
	Total         int                  `json:"total,omitempty"`
	ProductPrice  Text                 `json:"product_price,omitempty"`
	ReviewFee     Text                 `json:"review_fee,omitempty"`
	Platform      string               `json:"platform,omitempty"`
	BuyTime       string               `json:"buy_time,omitempty"`
	Closed        bool                 `json:"closed,omitempty"`
	ClosedReason  string               `json:"closed_reason,omitempty"`
	BuyTimeClosed bool                 `json:"buy_time_closed,omitempty"`
	Urgent        bool                 `json:"urgent,omitempty"`
	DailyTarget   int                  `json:"daily_target,omitempty"`
	TodayDone     int                  `json:"today_done,omitempty"`
	MyHistory     []CardHistoryPayload `json:"my_history,omitempty"`
}

// SelectItemPayload is a pre-listed picker entry.
type SelectItemPayload struct {
	ID       string `json:"id"`
	Disabled bool   `json:"disabled,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// MultiSelectPayload is a picker asking for exactly MaxSelect ids.
type MultiSelectPayload struct {
	MaxSelect int                 `json:"max_select"`
	Items     []SelectItemPayload `json:"items"`
}

// BotMessagePayload is a bot push. At most one of Buttons, Cards and
// MultiSelect is meaningful; see Interactive for the precedence.
type BotMessagePayload struct {
	Message     string              `json:"message,omitempty"`
	Buttons     []ButtonPayload     `json:"buttons,omitempty"`
	Cards       []CardPayload       `json:"cards,omitempty"`
	MultiSelect *MultiSelectPayload `json:"multi_select,omitempty"`
}

// TypingPayload toggles the typing affordance.
type TypingPayload struct {
	Typing bool `json:"typing"`
}

// ErrorPayload is a server-side failure. Message may be empty.
type ErrorPayload struct {
	Message string `json:"message,omitempty"`
}

// Text is a display string the server sends either as a JSON string or as a
// number (prices and fees come from both sheet and database columns).
type Text string

// UnmarshalJSON accepts strings, numbers and null.
func (t *Text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	*t = Text(n.String())
	return nil
}
