package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeWriteWait bounds how long Close waits to write the close frame.
const closeWriteWait = time.Second

type gorillaDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewDialer returns a Dialer backed by gorilla/websocket using the handshake
// settings of cfg.
func NewDialer(cfg *Config) Dialer {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = cfg.HandshakeTimeout
	d.Jar = cfg.Jar

	return &gorillaDialer{dialer: &d, header: cfg.Header}
}

func (d *gorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (http status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &gorillaConn{ws: c}, nil
}

type gorillaConn struct {
	ws *websocket.Conn

	// gorilla allows one concurrent writer.
	wmu sync.Mutex

	closeOnce sync.Once
}

func (c *gorillaConn) ReadMessage() (string, error) {
	_, p, err := c.ws.ReadMessage()
	if err != nil {
		_ = c.ws.Close()

		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return "", &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		return "", err
	}
	// Binary frames are delivered as text too.
	return string(p), nil
}

func (c *gorillaConn) WriteMessage(text string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *gorillaConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		cerr := c.ws.Close()

		switch {
		case werr != nil && !errors.Is(werr, websocket.ErrCloseSent) && !errors.Is(werr, net.ErrClosed):
			err = werr
		case cerr != nil && !errors.Is(cerr, net.ErrClosed):
			err = cerr
		}
	})
	return err
}
