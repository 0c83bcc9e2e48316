package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/roomwire-io/roomwire/pkg/ws"
)

// ErrNotStructured is returned for frames that are not a JSON object.
var ErrNotStructured = errors.New("frame is not a structured event")

var decoders = map[string]func([]byte) (Event, error){
	TypeMessage:         decodeAs[Message],
	TypeUserList:        decodeAs[UserList],
	TypeSystemMessage:   decodeAs[SystemMessage],
	TypeSuggestion:      decodeAs[Suggestion],
	TypeSuggestionError: decodeAs[SuggestionError],
	TypeNewChat:         decodeAs[NewChat],
	TypeDeleteChat:      decodeAs[DeleteChat],
	TypeUserCount:       decodeAs[UserCount],
}

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Decode parses raw into a typed event. Types it does not know decode to
// Unknown without error.
func Decode(raw string) (Event, error) {
	data := []byte(raw)

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, ErrNotStructured
	}

	decode, ok := decoders[envelope.Type]
	if !ok {
		return Unknown{Type: envelope.Type, Raw: raw}, nil
	}

	ev, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", envelope.Type, err)
	}
	return ev, nil
}

// FromMessage decodes a frame delivered by a ws.Client.
func FromMessage(m ws.Message) (Event, error) {
	if !m.Structured {
		return nil, ErrNotStructured
	}
	return Decode(m.Raw)
}

// ParseChatLine splits the "username: text" content of a chat message.
// ok is false when content has no sender prefix.
func ParseChatLine(content string) (sender, text string, ok bool) {
	sender, text, ok = strings.Cut(content, ": ")
	if !ok || sender == "" {
		return "", content, false
	}
	return sender, text, true
}

// FormatChatLine is the inverse of ParseChatLine.
func FormatChatLine(sender, text string) string {
	return sender + ": " + text
}
