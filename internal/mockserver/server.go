// Package mockserver is an in-memory double of the chat backend. It speaks
// the same REST and WebSocket wire format and is used by tests and by the
// mock-server command.
package mockserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/roomwire-io/roomwire/pkg/api"
	"github.com/roomwire-io/roomwire/pkg/log"
	"github.com/roomwire-io/roomwire/pkg/protocol"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

// Server is the backend double. It implements http.Handler.
type Server struct {
	store  *store
	hub    *hub
	router *mux.Router
	logger log.Logger

	upgrader websocket.Upgrader
}

// New returns a Server with an empty user and room model.
func New(logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	s := &Server{
		store:  newStore(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.hub = newHub(logger)

	r := mux.NewRouter()

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	v1.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	v1.HandleFunc("/whoami", s.authenticated(s.handleWhoAmI)).Methods(http.MethodGet)
	v1.HandleFunc("/chat", s.handleListChats).Methods(http.MethodGet)
	v1.HandleFunc("/chat", s.authenticated(s.handleCreateChat)).Methods(http.MethodPost)
	v1.HandleFunc("/chat/name/{name}", s.handleSearchChats).Methods(http.MethodGet)
	v1.HandleFunc("/chat/{id:[0-9]+}", s.handleGetChat).Methods(http.MethodGet)
	v1.HandleFunc("/chat/{id:[0-9]+}", s.authenticated(s.handleDeleteChat)).Methods(http.MethodDelete)

	r.HandleFunc("/ws/chat-list", s.handleChatListSocket)
	r.HandleFunc("/ws/chat", s.authenticated(s.handleChatSocket))

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type userHandler func(w http.ResponseWriter, r *http.Request, user api.User)

func (s *Server) authenticated(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing session")
			return
		}
		user, ok := s.store.session(c.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if !readJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, ok := s.store.register(in.Username, in.Password)
	if !ok {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	s.logger.Info("User registered", "username", user.Username, "id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if !readJSON(w, r, &in) {
		return
	}

	user, token, ok := s.store.login(in.Username, in.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.store.logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, _ *http.Request, user api.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListChats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.chats(nil))
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request, user api.User) {
	var in api.CreateChatRequest
	if !readJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if in.OwnerID == 0 {
		in.OwnerID = user.ID
	}

	chat := s.store.createChat(in.Name, in.OwnerID)
	s.hub.broadcastList(protocol.NewChat{Chat: chat})

	s.logger.Info("Chat created", "id", chat.ID, "name", chat.Name, "owner", user.Username)
	writeJSON(w, http.StatusCreated, chat)
}

func (s *Server) handleSearchChats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.searchChats(mux.Vars(r)["name"]))
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	detail, ok := s.store.chat(id)
	if !ok {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request, user api.User) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	detail, ok := s.store.chat(id)
	if !ok {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if detail.OwnerID != user.ID {
		writeError(w, http.StatusForbidden, "only the owner can delete a chat")
		return
	}

	s.store.deleteChat(id)
	s.hub.broadcastList(protocol.DeleteChat{ChatID: id})
	s.hub.closeRoom(id, websocket.CloseGoingAway, "chat deleted")
	w.WriteHeader(http.StatusNoContent)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
