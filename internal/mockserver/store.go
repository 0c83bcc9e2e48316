package mockserver

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roomwire-io/roomwire/pkg/api"
	"github.com/roomwire-io/roomwire/pkg/protocol"
)

// historySize is the number of messages returned with a chat.
const historySize = 10

type account struct {
	api.User
	password string
}

type room struct {
	chat    protocol.Chat
	history []api.PreviousMessage
}

// store is the in-memory user, session and room model.
type store struct {
	mu sync.Mutex

	users    map[string]*account
	sessions map[string]int64
	rooms    map[int64]*room

	nextUserID int64
	nextChatID int64

	now func() time.Time
}

func newStore() *store {
	return &store{
		users:    make(map[string]*account),
		sessions: make(map[string]int64),
		rooms:    make(map[int64]*room),
		now:      time.Now,
	}
}

func (s *store) register(username, password string) (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return api.User{}, false
	}
	s.nextUserID++
	a := &account{User: api.User{ID: s.nextUserID, Username: username}, password: password}
	s.users[username] = a
	return a.User, true
}

func (s *store) login(username, password string) (api.User, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.users[username]
	if !ok || a.password != password {
		return api.User{}, "", false
	}

	token := newToken()
	s.sessions[token] = a.ID
	return a.User, token, true
}

func (s *store) logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
}

func (s *store) session(token string) (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.sessions[token]
	if !ok {
		return api.User{}, false
	}
	for _, a := range s.users {
		if a.ID == id {
			return a.User, true
		}
	}
	return api.User{}, false
}

func (s *store) createChat(name string, ownerID int64) protocol.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChatID++
	r := &room{chat: protocol.Chat{
		ID:        s.nextChatID,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: s.now().UTC(),
	}}
	s.rooms[r.chat.ID] = r
	return r.chat
}

func (s *store) deleteChat(id int64) (protocol.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return protocol.Chat{}, false
	}
	delete(s.rooms, id)
	return r.chat, true
}

func (s *store) chat(id int64) (api.ChatDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return api.ChatDetail{}, false
	}
	return api.ChatDetail{
		ID:       r.chat.ID,
		Name:     r.chat.Name,
		OwnerID:  r.chat.OwnerID,
		Messages: append([]api.PreviousMessage{}, r.history...),
	}, true
}

// chats returns the rooms matching keep, ordered by id.
func (s *store) chats(keep func(protocol.Chat) bool) []protocol.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]protocol.Chat, 0, len(s.rooms))
	for _, r := range s.rooms {
		if keep == nil || keep(r.chat) {
			out = append(out, r.chat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) searchChats(prefix string) []protocol.Chat {
	prefix = strings.ToLower(prefix)
	return s.chats(func(c protocol.Chat) bool {
		return strings.HasPrefix(strings.ToLower(c.Name), prefix)
	})
}

func (s *store) setActiveUsers(id, n int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if ok {
		r.chat.ActiveUsers = n
	}
	return ok
}

func (s *store) appendHistory(id int64, username, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return
	}
	r.history = append(r.history, api.PreviousMessage{Username: username, Content: content, CreatedAt: s.now().UTC()})
	if len(r.history) > historySize {
		r.history = r.history[len(r.history)-historySize:]
	}
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
