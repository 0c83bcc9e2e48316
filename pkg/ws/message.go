package ws

import (
	"github.com/goccy/go-json"
)

// Message is an inbound frame.
type Message struct {
	// Raw is the frame text exactly as received.
	Raw string

	// Data is the decoded JSON value when the frame parses, otherwise Raw.
	Data any

	// Structured reports whether Data holds a decoded JSON value.
	Structured bool
}

// Type returns the "type" discriminator of a structured object frame, or "".
func (m Message) Type() string {
	obj, ok := m.Data.(map[string]any)
	if !ok {
		return ""
	}
	t, _ := obj["type"].(string)
	return t
}

// parseFrame never fails: text that is not JSON is delivered as a string.
func parseFrame(text string) Message {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Message{Raw: text, Data: text}
	}
	return Message{Raw: text, Data: v, Structured: true}
}
