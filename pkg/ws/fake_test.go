package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var errFakeClosed = errors.New("fake conn closed")

// fakeConn is an in-memory transport driven by the test.
type fakeConn struct {
	frames chan string
	remote chan error
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []string
	closes []int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan string, 16),
		remote: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (string, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.remote:
		return "", err
	case <-c.done:
		return "", errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes = append(c.writes, text)
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	c.closes = append(c.closes, code)
	c.mu.Unlock()

	c.once.Do(func() { close(c.done) })
	return nil
}

// serverClose simulates the peer closing with code.
func (c *fakeConn) serverClose(code int) {
	c.remote <- &CloseError{Code: code}
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.writes...)
}

func (c *fakeConn) closeCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]int(nil), c.closes...)
}

// fakeDialer hands out transports produced by next. A nil next fails every dial.
type fakeDialer struct {
	dials atomic.Int32
	next  func() (Conn, error)
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Conn, error) {
	d.dials.Add(1)
	if d.next == nil {
		return nil, errors.New("connection refused")
	}
	return d.next()
}

// connDialer returns a dialer that hands out the given conns in order.
func connDialer(conns ...*fakeConn) *fakeDialer {
	var mu sync.Mutex
	return &fakeDialer{next: func() (Conn, error) {
		mu.Lock()
		defer mu.Unlock()

		if len(conns) == 0 {
			return nil, errors.New("no more conns")
		}
		c := conns[0]
		conns = conns[1:]
		return c, nil
	}}
}
