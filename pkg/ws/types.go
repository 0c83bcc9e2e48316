package ws

import (
	"context"
	"fmt"
)

// Close codes with a meaning to the client. Any code other than
// CloseNormalClosure is treated as abnormal.
const (
	CloseNormalClosure   = 1000
	CloseAbnormalClosure = 1006
)

// State is the connection state of a Client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosing      State = "closing"
)

// Callbacks is the set of event handlers a Client dispatches to.
// Every field is optional.
type Callbacks struct {
	OnOpen    func()
	OnClose   func(CloseEvent)
	OnError   func(error)
	OnMessage func(Message)
}

// CloseEvent describes how a transport ended.
type CloseEvent struct {
	Code   int
	Reason string
}

// Normal reports whether the close was a clean, intentional one.
func (e CloseEvent) Normal() bool {
	return e.Code == CloseNormalClosure
}

// CloseError is returned by Conn.ReadMessage when the peer closed the
// connection with a close frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed: %d %s", e.Code, e.Reason)
}

// Dialer opens transports.
type Dialer interface {
	// Dial performs the opening handshake against url. It honours ctx for
	// cancellation and deadlines.
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a message-oriented, bidirectional transport.
//
// ReadMessage is only called from one goroutine. Once it returns an error the
// transport is finished and has released its resources. WriteMessage and Close
// may be called concurrently with ReadMessage.
type Conn interface {
	ReadMessage() (string, error)
	WriteMessage(text string) error
	Close(code int, reason string) error
}
