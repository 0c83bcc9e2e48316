// Package chatroom is the view model of a single chat room.
package chatroom

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/roomwire-io/roomwire/internal/transcript"
	"github.com/roomwire-io/roomwire/pkg/api"
	"github.com/roomwire-io/roomwire/pkg/log"
	"github.com/roomwire-io/roomwire/pkg/protocol"
	"github.com/roomwire-io/roomwire/pkg/ws"
)

// maxLines bounds the in-memory transcript.
const maxLines = 1000

// Line is one entry of the room transcript.
type Line struct {
	At     time.Time
	Sender string
	Body   string

	// Own marks lines sent by the logged-in user.
	Own bool

	// System marks join and leave notices and frames without a sender.
	System bool
}

func (l Line) String() string {
	if l.Sender == "" {
		return l.Body
	}
	return l.Sender + ": " + l.Body
}

// Hooks receive room updates. They run on the socket goroutine and every
// field is optional.
type Hooks struct {
	OnLine       func(Line)
	OnUsers      func([]string)
	OnSuggestion func(text, errText string)
	OnStatus     func(connected bool)
}

// Model is the chat room view model.
type Model struct {
	chatID int64
	me     string

	hooks   Hooks
	logger  log.Logger
	clock   clock.PassiveClock
	store   *transcript.Store
	history int
	backlog []api.PreviousMessage

	socket ws.Subscriber

	mu            sync.Mutex
	lines         []Line
	users         []string
	suggestion    string
	suggestionErr string
	connected     bool
}

// Option configures a Model.
type Option func(*Model)

// WithHooks registers update hooks.
func WithHooks(h Hooks) Option {
	return func(m *Model) { m.hooks = h }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithClock sets the clock used to timestamp lines.
func WithClock(c clock.PassiveClock) Option {
	return func(m *Model) { m.clock = c }
}

// WithTranscript persists chat lines to store and replays up to history
// stored lines when the room opens.
func WithTranscript(store *transcript.Store, history int) Option {
	return func(m *Model) { m.store, m.history = store, history }
}

// WithBacklog seeds the transcript with the messages returned by the REST
// API. It is ignored when a transcript store already holds lines.
func WithBacklog(msgs []api.PreviousMessage) Option {
	return func(m *Model) { m.backlog = msgs }
}

// Path returns the subscription path of a room.
func Path(chatID int64) string {
	return fmt.Sprintf("/chat?chat_id=%d", chatID)
}

// New joins room chatID as user me.
func New(chatID int64, me string, open ws.Factory, opts ...Option) (*Model, error) {
	m := &Model{
		chatID: chatID,
		me:     me,
		logger: log.Std(),
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithName("chatroom").WithValues("chat", chatID)

	m.preload()

	socket, err := open(Path(chatID), ws.Callbacks{
		OnOpen:    func() { m.setConnected(true) },
		OnClose:   func(ws.CloseEvent) { m.setConnected(false) },
		OnError:   func(err error) { m.logger.Warn("Chat connection error", "error", err) },
		OnMessage: m.handleMessage,
	})
	if err != nil {
		return nil, err
	}
	m.socket = socket
	socket.Connect()
	return m, nil
}

func (m *Model) preload() {
	entries, err := m.store.Recent(m.chatID, m.history)
	if err != nil {
		m.logger.Error(err, "Failed to load transcript")
	}

	if len(entries) > 0 {
		for _, e := range entries {
			m.lines = append(m.lines, Line{
				At:     e.At,
				Sender: e.Sender,
				Body:   e.Body,
				Own:    e.Sender != "" && e.Sender == m.me,
				System: e.System,
			})
		}
		return
	}

	for _, pm := range m.backlog {
		m.lines = append(m.lines, Line{
			At:     pm.CreatedAt,
			Sender: pm.Username,
			Body:   pm.Content,
			Own:    pm.Username == m.me,
		})
	}
}

func (m *Model) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()

	if m.hooks.OnStatus != nil {
		m.hooks.OnStatus(v)
	}
}

func (m *Model) handleMessage(msg ws.Message) {
	ev, err := protocol.FromMessage(msg)
	if err != nil {
		if !errors.Is(err, protocol.ErrNotStructured) {
			m.logger.Debug("Showing undecodable event as text", "error", err)
		}
		m.addLine(Line{Body: msg.Raw, System: true}, false)
		return
	}

	switch e := ev.(type) {
	case protocol.Message:
		line := Line{Body: e.Content}
		if sender, text, ok := protocol.ParseChatLine(e.Content); ok {
			line = Line{Sender: sender, Body: text, Own: sender == m.me}
		}
		m.addLine(line, true)

	case protocol.SystemMessage:
		m.addLine(Line{Body: e.Content, System: true}, true)

	case protocol.UserList:
		users := dedupe(e.Users)
		m.mu.Lock()
		m.users = users
		m.mu.Unlock()
		if m.hooks.OnUsers != nil {
			m.hooks.OnUsers(slices.Clone(users))
		}

	case protocol.Suggestion:
		m.setSuggestion(e.Text, "")

	case protocol.SuggestionError:
		m.setSuggestion("", e.Reason)

	default:
		m.logger.Debug("Ignoring chat event", "type", ev.EventType())
	}
}

func (m *Model) addLine(l Line, persist bool) {
	l.At = m.clock.Now()

	m.mu.Lock()
	m.lines = append(m.lines, l)
	if len(m.lines) > maxLines {
		m.lines = slices.Delete(m.lines, 0, len(m.lines)-maxLines)
	}
	m.mu.Unlock()

	if persist {
		entry := transcript.Entry{At: l.At, Sender: l.Sender, Body: l.Body, System: l.System}
		if err := m.store.Append(m.chatID, entry); err != nil {
			m.logger.Error(err, "Failed to persist line")
		}
	}

	if m.hooks.OnLine != nil {
		m.hooks.OnLine(l)
	}
}

func (m *Model) setSuggestion(text, errText string) {
	m.mu.Lock()
	m.suggestion, m.suggestionErr = text, errText
	m.mu.Unlock()

	if m.hooks.OnSuggestion != nil {
		m.hooks.OnSuggestion(text, errText)
	}
}

func dedupe(users []string) []string {
	out := slices.Clone(users)
	sort.Strings(out)
	return slices.Compact(out)
}

// Send posts a chat line. Surrounding whitespace is trimmed and empty input
// is ignored.
func (m *Model) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return m.socket.SendJSON(protocol.NewChatMessage(text))
}

// RequestSuggestion asks the server to complete input. The answer arrives
// through Hooks.OnSuggestion.
func (m *Model) RequestSuggestion(input string) error {
	m.mu.Lock()
	m.suggestion, m.suggestionErr = "", ""
	m.mu.Unlock()

	return m.socket.SendJSON(protocol.NewSuggestionRequest(input))
}

// Lines returns a copy of the transcript.
func (m *Model) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.lines)
}

// Users returns the sorted, de-duplicated online users.
func (m *Model) Users() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.users)
}

// Suggestion returns the last suggestion, or the reason none was produced.
func (m *Model) Suggestion() (text, errText string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.suggestion, m.suggestionErr
}

// Connected reports whether the room socket is open.
func (m *Model) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.connected
}

// Reconnect forces a fresh room session.
func (m *Model) Reconnect() {
	m.socket.Reconnect()
}

// Close leaves the room.
func (m *Model) Close() {
	m.socket.Disconnect()
}
