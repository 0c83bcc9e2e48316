package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/roomwire-io/roomwire/pkg/protocol"
)

// Chat is a chat room.
type Chat = protocol.Chat

// User is an account as reported by login and whoami.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Credentials is the body of register and login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateChatRequest is the body of a chat creation.
type CreateChatRequest struct {
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
}

// PreviousMessage is a stored chat line returned with a chat.
type PreviousMessage struct {
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatDetail is a chat with its most recent messages, oldest first.
type ChatDetail struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	OwnerID  int64             `json:"owner_id"`
	Messages []PreviousMessage `json:"messages"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("api: %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// IsUnauthorized reports whether err means the session is missing or expired.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
