// Package roomlist keeps the list of chat rooms in sync with the server.
package roomlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roomwire-io/roomwire/pkg/api"
	"github.com/roomwire-io/roomwire/pkg/log"
	"github.com/roomwire-io/roomwire/pkg/protocol"
	"github.com/roomwire-io/roomwire/pkg/ws"
)

// Path is the subscription path of the room list.
const Path = "/chat-list"

// SortBy orders the rooms returned by Rooms.
type SortBy string

const (
	SortRecent  SortBy = "recent"
	SortMembers SortBy = "members"
	SortName    SortBy = "name"
)

// ParseSortBy validates s. An empty string means SortRecent.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case "", SortRecent:
		return SortRecent, nil
	case SortMembers, SortName:
		return SortBy(s), nil
	}
	return "", fmt.Errorf("unknown sort order %q (want recent, members or name)", s)
}

// Lister loads the initial room list.
type Lister interface {
	ListChats(ctx context.Context) ([]api.Chat, error)
}

// Model is the room list view model.
type Model struct {
	logger   log.Logger
	onChange func()

	socket ws.Subscriber

	mu        sync.Mutex
	chats     []api.Chat
	connected bool
}

// Option configures a Model.
type Option func(*Model)

// WithOnChange registers a hook called after every change to the list or
// the connection status. It runs on the socket goroutine.
func WithOnChange(fn func()) Option {
	return func(m *Model) { m.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// New hydrates the list from lister and subscribes to live updates.
func New(ctx context.Context, lister Lister, open ws.Factory, opts ...Option) (*Model, error) {
	m := &Model{logger: log.Std()}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithName("roomlist")

	chats, err := lister.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chat list: %w", err)
	}
	m.chats = chats

	socket, err := open(Path, ws.Callbacks{
		OnOpen:    func() { m.setConnected(true) },
		OnClose:   func(ws.CloseEvent) { m.setConnected(false) },
		OnError:   func(err error) { m.logger.Warn("Chat list connection error", "error", err) },
		OnMessage: m.handleMessage,
	})
	if err != nil {
		return nil, err
	}
	m.socket = socket
	socket.Connect()
	return m, nil
}

func (m *Model) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
	m.changed()
}

func (m *Model) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

func (m *Model) handleMessage(msg ws.Message) {
	ev, err := protocol.FromMessage(msg)
	if err != nil {
		if !errors.Is(err, protocol.ErrNotStructured) {
			m.logger.Warn("Dropping malformed chat list event", "error", err)
		}
		return
	}

	if m.Apply(ev) {
		m.changed()
	}
}

// Apply updates the list with a server event and reports whether it changed.
func (m *Model) Apply(ev protocol.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := ev.(type) {
	case protocol.NewChat:
		for i := range m.chats {
			if m.chats[i].ID == e.Chat.ID {
				m.chats[i] = e.Chat
				return true
			}
		}
		m.chats = append(m.chats, e.Chat)
		return true

	case protocol.DeleteChat:
		for i := range m.chats {
			if m.chats[i].ID == e.ChatID {
				m.chats = append(m.chats[:i], m.chats[i+1:]...)
				return true
			}
		}

	case protocol.UserCount:
		for i := range m.chats {
			if m.chats[i].ID == e.ChatID {
				m.chats[i].ActiveUsers = e.Count
				return true
			}
		}

	default:
		m.logger.Debug("Ignoring chat list event", "type", ev.EventType())
	}
	return false
}

// Rooms returns the rooms whose name contains query, ignoring case, in the
// requested order.
func (m *Model) Rooms(by SortBy, query string) []api.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Filter(m.chats, by, query)
}

// Filter returns a sorted copy of the chats whose name contains query,
// ignoring case.
func Filter(chats []api.Chat, by SortBy, query string) []api.Chat {
	out := make([]api.Chat, 0, len(chats))
	q := strings.ToLower(strings.TrimSpace(query))
	for _, c := range chats {
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}

	var less func(a, b api.Chat) bool
	switch by {
	case SortMembers:
		less = func(a, b api.Chat) bool { return a.ActiveUsers > b.ActiveUsers }
	case SortName:
		less = func(a, b api.Chat) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		less = func(a, b api.Chat) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Connected reports whether live updates are flowing.
func (m *Model) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.connected
}

// Reconnect forces a fresh subscription.
func (m *Model) Reconnect() {
	m.socket.Reconnect()
}

// Close ends the subscription.
func (m *Model) Close() {
	m.socket.Disconnect()
}
