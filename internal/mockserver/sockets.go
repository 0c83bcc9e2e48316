package mockserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/roomwire-io/roomwire/pkg/api"
	"github.com/roomwire-io/roomwire/pkg/log"
	"github.com/roomwire-io/roomwire/pkg/protocol"
)

const writeWait = time.Second

// peer is one WebSocket connection.
type peer struct {
	conn     *websocket.Conn
	username string

	wmu sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = p.conn.Close()
}

// hub tracks the connected peers of the chat list and of each room.
type hub struct {
	mu     sync.Mutex
	list   map[*peer]struct{}
	rooms  map[int64]map[*peer]struct{}
	logger log.Logger
}

func newHub(logger log.Logger) *hub {
	return &hub{
		list:   make(map[*peer]struct{}),
		rooms:  make(map[int64]map[*peer]struct{}),
		logger: logger,
	}
}

func (h *hub) join(chatID int64, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*peer]struct{})
	}
	h.rooms[chatID][p] = struct{}{}
}

func (h *hub) leave(chatID int64, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms[chatID], p)
	if len(h.rooms[chatID]) == 0 {
		delete(h.rooms, chatID)
	}
}

func (h *hub) roomPeers(chatID int64) []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*peer, 0, len(h.rooms[chatID]))
	for p := range h.rooms[chatID] {
		out = append(out, p)
	}
	return out
}

func (h *hub) listPeers() []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*peer, 0, len(h.list))
	for p := range h.list {
		out = append(out, p)
	}
	return out
}

// usernames returns the users in a room, one entry per connection.
func (h *hub) usernames(chatID int64) []string {
	peers := h.roomPeers(chatID)
	names := make([]string, 0, len(peers))
	for _, p := range peers {
		names = append(names, p.username)
	}
	sort.Strings(names)
	return names
}

func (h *hub) send(peers []*peer, data []byte) {
	for _, p := range peers {
		if err := p.write(data); err != nil {
			h.logger.Debug("Dropping frame for peer", "username", p.username, "error", err)
		}
	}
}

func (h *hub) broadcastRoom(chatID int64, ev protocol.Event) {
	data, err := protocol.Encode(ev)
	if err != nil {
		h.logger.Error(err, "Failed to encode event")
		return
	}
	h.send(h.roomPeers(chatID), data)
}

func (h *hub) broadcastList(ev protocol.Event) {
	data, err := protocol.Encode(ev)
	if err != nil {
		h.logger.Error(err, "Failed to encode event")
		return
	}
	h.send(h.listPeers(), data)
}

func (h *hub) closeRoom(chatID int64, code int, reason string) int {
	peers := h.roomPeers(chatID)
	for _, p := range peers {
		p.close(code, reason)
	}
	return len(peers)
}

func (s *Server) handleChatListSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn}

	s.hub.mu.Lock()
	s.hub.list[p] = struct{}{}
	s.hub.mu.Unlock()

	defer func() {
		s.hub.mu.Lock()
		delete(s.hub.list, p)
		s.hub.mu.Unlock()
		_ = conn.Close()
	}()

	// The list endpoint is push only; inbound frames are read and discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request, user api.User) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if _, ok := s.store.chat(chatID); !ok {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn, username: user.Username}

	s.hub.join(chatID, p)
	s.presence(chatID, protocol.SystemMessage{
		Subtype:  protocol.SubtypeJoin,
		Content:  user.Username + " joined the chat",
		Username: user.Username,
	})

	defer func() {
		s.hub.leave(chatID, p)
		_ = conn.Close()
		s.presence(chatID, protocol.SystemMessage{
			Subtype:  protocol.SubtypeLeave,
			Content:  user.Username + " left the chat",
			Username: user.Username,
		})
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleChatFrame(chatID, p, string(data))
	}
}

// presence announces a join or leave and refreshes the room's counters.
func (s *Server) presence(chatID int64, notice protocol.SystemMessage) {
	users := s.hub.usernames(chatID)

	s.hub.broadcastRoom(chatID, notice)
	if s.store.setActiveUsers(chatID, int64(len(users))) {
		s.hub.broadcastList(protocol.UserCount{ChatID: chatID, Count: int64(len(users))})
	}
	s.hub.broadcastRoom(chatID, protocol.UserList{Users: users})
}

// handleChatFrame accepts chat_message and request_suggestion events, and
// plain text which is treated as a chat line.
func (s *Server) handleChatFrame(chatID int64, p *peer, text string) {
	var in struct {
		Type         string `json:"type"`
		Content      string `json:"content"`
		CurrentInput string `json:"current_input"`
	}
	if err := json.Unmarshal([]byte(text), &in); err != nil || in.Type == "" {
		in.Type, in.Content = protocol.TypeChatMessage, text
	}

	switch in.Type {
	case protocol.TypeChatMessage:
		s.store.appendHistory(chatID, p.username, in.Content)
		s.hub.broadcastRoom(chatID, protocol.Message{Content: protocol.FormatChatLine(p.username, in.Content)})

	case protocol.TypeRequestSuggestion:
		var reply protocol.Event = protocol.Suggestion{Text: suggest(in.CurrentInput)}
		if strings.TrimSpace(in.CurrentInput) == "" {
			reply = protocol.SuggestionError{Reason: "nothing to complete"}
		}
		data, err := protocol.Encode(reply)
		if err == nil {
			s.hub.send([]*peer{p}, data)
		}

	default:
		s.logger.Debug("Ignoring unknown chat event", "type", in.Type)
	}
}

// suggest is a canned completion.
func suggest(input string) string {
	return strings.TrimSpace(input) + " sounds good to me!"
}

// Kick closes every connection to a room with code, as a server restart or a
// proxy timeout would. It returns the number of closed connections.
func (s *Server) Kick(chatID int64, code int) int {
	return s.hub.closeRoom(chatID, code, "kicked")
}

// KickList closes every chat-list connection with code.
func (s *Server) KickList(code int) int {
	peers := s.hub.listPeers()
	for _, p := range peers {
		p.close(code, "kicked")
	}
	return len(peers)
}

// Broadcast sends a raw frame to every connection in a room.
func (s *Server) Broadcast(chatID int64, raw string) {
	s.hub.send(s.hub.roomPeers(chatID), []byte(raw))
}

// BroadcastList sends a raw frame to every chat-list connection.
func (s *Server) BroadcastList(raw string) {
	s.hub.send(s.hub.listPeers(), []byte(raw))
}

// Peers returns the number of connections in a room.
func (s *Server) Peers(chatID int64) int {
	return len(s.hub.roomPeers(chatID))
}

// ListPeers returns the number of chat-list connections.
func (s *Server) ListPeers() int {
	return len(s.hub.listPeers())
}
