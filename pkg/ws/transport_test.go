package ws

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades every request, sends greeting, echoes text frames and
// closes with the code carried by a "close:<code>" frame.
func echoServer(t *testing.T, greeting string, closed chan<- int) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_ = c.WriteMessage(websocket.TextMessage, []byte(greeting))
		for {
			_, p, err := c.ReadMessage()
			if err != nil {
				if ce, ok := err.(*websocket.CloseError); ok && closed != nil {
					closed <- ce.Code
				}
				return
			}
			if code, ok := strings.CutPrefix(string(p), "close:"); ok {
				n, _ := strconv.Atoi(code)
				msg := websocket.FormatCloseMessage(n, "bye")
				_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			_ = c.WriteMessage(websocket.BinaryMessage, p)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGorillaTransport(t *testing.T) {
	closed := make(chan int, 1)
	srv := echoServer(t, `{"type":"user_list","content":["ann"]}`, closed)

	rec := &recorder{}
	c, err := NewClient("/chat?chat_id=1", &Config{
		BaseURL:   wsURL(srv),
		Header:    http.Header{"Cookie": []string{"session=abc"}},
		Callbacks: rec.callbacks(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)

	require.Eventually(t, c.IsConnected, waitFor, tick)
	require.Eventually(t, func() bool { return len(rec.messages()) == 1 }, waitFor, tick)
	assert.Equal(t, "user_list", rec.messages()[0].Type())

	require.NoError(t, c.SendMessage("echo me"))
	require.Eventually(t, func() bool { return len(rec.messages()) == 2 }, waitFor, tick)
	assert.Equal(t, Message{Raw: "echo me", Data: "echo me"}, rec.messages()[1])

	c.Disconnect()
	select {
	case code := <-closed:
		assert.Equal(t, CloseNormalClosure, code)
	case <-time.After(waitFor):
		t.Fatal("server did not observe the close frame")
	}
}

func TestGorillaTransportServerClose(t *testing.T) {
	srv := echoServer(t, "hello", nil)

	rec := &recorder{}
	c, err := NewClient("/chat-list", &Config{
		BaseURL:         wsURL(srv),
		Header:          http.Header{"Cookie": []string{"session=abc"}},
		Callbacks:       rec.callbacks(),
		ShouldReconnect: Bool(false),
	})
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)

	require.Eventually(t, c.IsConnected, waitFor, tick)
	require.NoError(t, c.SendMessage("close:4000"))

	require.Eventually(t, func() bool { return rec.closeCount() == 1 }, waitFor, tick)
	rec.mu.Lock()
	assert.Equal(t, CloseEvent{Code: 4000, Reason: "bye"}, rec.closes[0])
	rec.mu.Unlock()
	assert.Equal(t, StateDisconnected, c.State())
}

func TestGorillaTransportHandshakeRejected(t *testing.T) {
	srv := echoServer(t, "hello", nil)

	rec := &recorder{}
	c, err := NewClient("/chat-list", &Config{
		BaseURL:         wsURL(srv),
		Callbacks:       rec.callbacks(),
		ShouldReconnect: Bool(false),
	})
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)

	require.Eventually(t, func() bool { return rec.closeCount() == 1 }, waitFor, tick)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0].Error(), "http status 401")
	assert.Equal(t, CloseAbnormalClosure, rec.closes[0].Code)
	assert.Equal(t, 0, rec.opens)
}
