package protocol

import (
	"time"
)

// Event types pushed by the server.
const (
	TypeMessage         = "message"
	TypeUserList        = "user_list"
	TypeSystemMessage   = "system_message"
	TypeSuggestion      = "suggestion"
	TypeSuggestionError = "suggestion_error"

	TypeNewChat    = "new_chat"
	TypeDeleteChat = "delete_chat"
	TypeUserCount  = "user_count"
)

// Event types sent by the client.
const (
	TypeChatMessage       = "chat_message"
	TypeRequestSuggestion = "request_suggestion"
)

// System message subtypes.
const (
	SubtypeJoin  = "join"
	SubtypeLeave = "leave"
)

// Event is a decoded server event.
type Event interface {
	EventType() string
}

// Chat is a chat room as returned by the REST API and carried by new_chat.
type Chat struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	OwnerID     int64     `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ActiveUsers int64     `json:"active_users"`
}

// Message is a chat line. Content has the form "username: text".
type Message struct {
	Content string `json:"content"`
}

// UserList carries the usernames currently in the room. It may contain duplicates.
type UserList struct {
	Users []string `json:"content"`
}

// SystemMessage is a join or leave notice.
type SystemMessage struct {
	Subtype  string `json:"subtype"`
	Content  string `json:"content"`
	Username string `json:"username"`
}

// Suggestion is a completion proposed for the current input.
type Suggestion struct {
	Text string `json:"text"`
}

// SuggestionError reports that no suggestion could be produced.
type SuggestionError struct {
	Reason string `json:"error"`
}

// NewChat announces a created room.
type NewChat struct {
	Chat Chat `json:"content"`
}

// DeleteChat announces a removed room.
type DeleteChat struct {
	ChatID int64 `json:"chatId"`
}

// UserCount carries the number of users online in a room.
type UserCount struct {
	ChatID int64 `json:"chatId"`
	Count  int64 `json:"content"`
}

// Unknown is a structured event with a type this package does not model.
type Unknown struct {
	Type string
	Raw  string
}

func (Message) EventType() string         { return TypeMessage }
func (UserList) EventType() string        { return TypeUserList }
func (SystemMessage) EventType() string   { return TypeSystemMessage }
func (Suggestion) EventType() string      { return TypeSuggestion }
func (SuggestionError) EventType() string { return TypeSuggestionError }
func (NewChat) EventType() string         { return TypeNewChat }
func (DeleteChat) EventType() string      { return TypeDeleteChat }
func (UserCount) EventType() string       { return TypeUserCount }
func (u Unknown) EventType() string       { return u.Type }

// ChatMessageRequest sends a chat line.
type ChatMessageRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// SuggestionRequest asks for a completion of the current input.
type SuggestionRequest struct {
	Type         string `json:"type"`
	CurrentInput string `json:"current_input"`
}

// NewChatMessage returns a chat_message event for content.
func NewChatMessage(content string) ChatMessageRequest {
	return ChatMessageRequest{Type: TypeChatMessage, Content: content}
}

// NewSuggestionRequest returns a request_suggestion event for input.
func NewSuggestionRequest(input string) SuggestionRequest {
	return SuggestionRequest{Type: TypeRequestSuggestion, CurrentInput: input}
}
