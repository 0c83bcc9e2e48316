package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/roomwire-io/roomwire/pkg/log"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type recorder struct {
	mu     sync.Mutex
	opens  int
	closes []CloseEvent
	errs   []error
	msgs   []Message
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnOpen: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.opens++
		},
		OnClose: func(ev CloseEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closes = append(r.closes, ev)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnMessage: func(m Message) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.msgs = append(r.msgs, m)
		},
	}
}

func (r *recorder) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens
}

func (r *recorder) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.closes)
}

func (r *recorder) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

type harness struct {
	client *Client
	dialer *fakeDialer
	clock  *testingclock.FakeClock
	rec    *recorder
	logs   *observer.ObservedLogs
}

func newHarness(t *testing.T, dialer *fakeDialer, mutate func(*Config)) *harness {
	t.Helper()

	h := &harness{
		dialer: dialer,
		clock:  testingclock.NewFakeClock(time.Now()),
		rec:    &recorder{},
	}

	cfg := &Config{
		BaseURL:           "ws://chat.test/ws",
		Debug:             true,
		ReconnectInterval: 100 * time.Millisecond,
		ManualConnect:     true,
	}
	cfg.Callbacks = h.rec.callbacks()
	if mutate != nil {
		mutate(cfg)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs

	c, err := NewClient("/chat-list", cfg,
		WithDialer(dialer),
		WithClock(h.clock),
		WithLogger(log.New(zap.New(core))),
	)
	require.NoError(t, err)
	h.client = c

	t.Cleanup(c.Disconnect)
	return h
}

func (h *harness) waitDials(t *testing.T, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return h.dialer.dials.Load() == n }, waitFor, tick)
}

func (h *harness) waitTimer(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.clock.HasWaiters, waitFor, tick)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("/chat-list", &Config{})
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = NewClient("/chat-list", nil)
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = NewClient("/chat-list", &Config{BaseURL: "http://chat.test"})
	assert.Error(t, err)

	c, err := NewClient("/chat?chat_id=7", &Config{BaseURL: "ws://chat.test/ws", ManualConnect: true})
	require.NoError(t, err)
	assert.Equal(t, "ws://chat.test/ws/chat?chat_id=7", c.Endpoint())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 5, c.cfg.MaxReconnectAttempts)
	assert.Equal(t, time.Second, c.cfg.ReconnectInterval)
	assert.Equal(t, 100*time.Millisecond, c.cfg.SettleDelay)

	_, err = NewClient("/chat-list", &Config{BaseURL: "ws://chat.test/ws", MaxReconnectAttempts: -1})
	assert.Error(t, err)
}

func TestZeroMaxReconnectAttemptsUsesDefault(t *testing.T) {
	h := newHarness(t, &fakeDialer{}, func(cfg *Config) {
		cfg.MaxReconnectAttempts = 0
	})
	assert.Equal(t, 5, h.client.cfg.MaxReconnectAttempts)

	// Zero is not "never reconnect"; the first failure still schedules a retry.
	h.client.Connect()
	h.waitDials(t, 1)
	h.waitTimer(t)
	assert.Equal(t, 1, h.client.Attempts())
}

func TestNewClientConnectsImmediately(t *testing.T) {
	conn := newFakeConn()
	d := connDialer(conn)

	c, err := NewClient("/chat-list", &Config{BaseURL: "ws://chat.test/ws"}, WithDialer(d))
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)

	require.Eventually(t, c.IsConnected, waitFor, tick)
	assert.EqualValues(t, 1, d.dials.Load())
}

func TestConnectOpensAndDispatchesFrames(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)
	assert.Equal(t, 1, h.rec.openCount())
	assert.Equal(t, 0, h.client.Attempts())

	conn.frames <- "not json"
	conn.frames <- `{"type":"user_list","content":["a","b","a"]}`
	require.Eventually(t, func() bool { return len(h.rec.messages()) == 2 }, waitFor, tick)

	msgs := h.rec.messages()
	assert.Equal(t, Message{Raw: "not json", Data: "not json"}, msgs[0])

	assert.True(t, msgs[1].Structured)
	assert.Equal(t, "user_list", msgs[1].Type())
	assert.Equal(t, map[string]any{
		"type":    "user_list",
		"content": []any{"a", "b", "a"},
	}, msgs[1].Data)
}

func TestConnectIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	h.client.Connect()
	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)
	h.client.Connect()

	assert.EqualValues(t, 1, h.dialer.dials.Load())
}

func TestShouldReconnectFalse(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn, newFakeConn()), func(cfg *Config) {
		cfg.ShouldReconnect = Bool(false)
	})

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	conn.serverClose(CloseAbnormalClosure)
	require.Eventually(t, func() bool { return h.rec.closeCount() == 1 }, waitFor, tick)

	h.clock.Step(time.Minute)
	assert.False(t, h.clock.HasWaiters())
	assert.EqualValues(t, 1, h.dialer.dials.Load())
	assert.Equal(t, StateDisconnected, h.client.State())
}

func TestNormalClosureDoesNotReconnect(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn, newFakeConn()), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	conn.serverClose(CloseNormalClosure)
	require.Eventually(t, func() bool { return h.rec.closeCount() == 1 }, waitFor, tick)

	assert.False(t, h.clock.HasWaiters())
	assert.Equal(t, 0, h.client.Attempts())
}

func TestAbnormalCloseReconnects(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	h := newHarness(t, connDialer(first, second), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	first.serverClose(4001)
	h.waitTimer(t)
	assert.Equal(t, 1, h.client.Attempts())
	assert.Equal(t, StateDisconnected, h.client.State())

	h.clock.Step(100 * time.Millisecond)
	require.Eventually(t, h.client.IsConnected, waitFor, tick)
	assert.EqualValues(t, 2, h.dialer.dials.Load())
	assert.Equal(t, 0, h.client.Attempts())
	assert.Equal(t, 2, h.rec.openCount())
}

func TestBackoffScheduleAndExhaustion(t *testing.T) {
	h := newHarness(t, &fakeDialer{}, func(cfg *Config) {
		cfg.MaxReconnectAttempts = 2
	})

	// Every dial fails, so each attempt is an abnormal close.
	h.client.Connect()
	h.waitDials(t, 1)
	h.waitTimer(t)
	assert.Equal(t, 1, h.client.Attempts())

	h.clock.Step(99 * time.Millisecond)
	assert.EqualValues(t, 1, h.dialer.dials.Load())
	h.clock.Step(time.Millisecond)
	h.waitDials(t, 2)
	h.waitTimer(t)
	assert.Equal(t, 2, h.client.Attempts())

	// The last timer still fires, but connect refuses to dial past the cap.
	h.clock.Step(149 * time.Millisecond)
	assert.EqualValues(t, 2, h.dialer.dials.Load())
	h.clock.Step(time.Millisecond)

	require.Eventually(t, func() bool {
		return h.logs.FilterMessage("Reconnect attempts exhausted, giving up").Len() == 1
	}, waitFor, tick)
	assert.EqualValues(t, 2, h.dialer.dials.Load())
	assert.False(t, h.clock.HasWaiters())
	assert.Equal(t, 2, h.client.Attempts())
	assert.False(t, h.client.IsConnected())

	h.clock.Step(time.Hour)
	assert.EqualValues(t, 2, h.dialer.dials.Load())

	// Exhaustion holds until an explicit reset.
	h.client.Connect()
	assert.EqualValues(t, 2, h.dialer.dials.Load())
	assert.Equal(t, 1, h.logs.FilterMessage("Reconnect attempts exhausted, giving up").Len())

	h.rec.mu.Lock()
	assert.Len(t, h.rec.errs, 2)
	assert.Len(t, h.rec.closes, 2)
	for _, ev := range h.rec.closes {
		assert.Equal(t, CloseAbnormalClosure, ev.Code)
	}
	h.rec.mu.Unlock()
}

func TestSingleAttemptNeverRedials(t *testing.T) {
	h := newHarness(t, &fakeDialer{}, func(cfg *Config) {
		cfg.MaxReconnectAttempts = 1
	})

	h.client.Connect()
	h.waitDials(t, 1)
	h.waitTimer(t)
	assert.Equal(t, 1, h.client.Attempts())

	h.clock.Step(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return h.logs.FilterMessage("Reconnect attempts exhausted, giving up").Len() == 1
	}, waitFor, tick)
	assert.EqualValues(t, 1, h.dialer.dials.Load())
	assert.Equal(t, StateDisconnected, h.client.State())
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	h := newHarness(t, &fakeDialer{}, nil)

	h.client.Connect()
	h.waitDials(t, 1)
	h.waitTimer(t)

	h.client.Disconnect()
	assert.False(t, h.clock.HasWaiters())
	assert.Equal(t, 0, h.client.Attempts())

	h.clock.Step(time.Hour)
	assert.EqualValues(t, 1, h.dialer.dials.Load())
	assert.Equal(t, StateDisconnected, h.client.State())
}

func TestHandshakeCompletingAfterDisconnect(t *testing.T) {
	conn := newFakeConn()
	release := make(chan struct{})
	d := &fakeDialer{next: func() (Conn, error) {
		<-release
		return conn, nil
	}}
	h := newHarness(t, d, nil)

	h.client.Connect()
	h.waitDials(t, 1)
	assert.Equal(t, StateConnecting, h.client.State())

	h.client.Disconnect()
	assert.Equal(t, StateDisconnected, h.client.State())
	close(release)

	require.Eventually(t, func() bool { return len(conn.closeCodes()) == 1 }, waitFor, tick)
	assert.Equal(t, []int{CloseNormalClosure}, conn.closeCodes())
	assert.Equal(t, 0, h.rec.openCount())
	assert.False(t, h.client.IsConnected())
}

func TestDisconnectClosesTransport(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	h.client.Disconnect()
	h.client.Disconnect()

	assert.Equal(t, []int{CloseNormalClosure}, conn.closeCodes())
	assert.Equal(t, StateDisconnected, h.client.State())

	// The read loop ends on the closed transport without reporting it.
	assert.Never(t, func() bool { return h.rec.closeCount() > 0 }, 50*time.Millisecond, tick)
	assert.False(t, h.clock.HasWaiters())
}

func TestDisconnectBeforeConnect(t *testing.T) {
	h := newHarness(t, &fakeDialer{}, nil)

	assert.NotPanics(t, h.client.Disconnect)
	assert.Equal(t, StateDisconnected, h.client.State())
	assert.EqualValues(t, 0, h.dialer.dials.Load())
}

func TestConnectAfterDisconnect(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	gate := make(chan struct{}, 1)
	conns := connDialer(first, second)
	d := &fakeDialer{next: func() (Conn, error) {
		<-gate
		return conns.next()
	}}
	h := newHarness(t, d, nil)

	gate <- struct{}{}
	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	h.client.Disconnect()
	assert.Equal(t, StateDisconnected, h.client.State())

	h.client.Connect()
	h.waitDials(t, 2)
	assert.Equal(t, StateConnecting, h.client.State())

	gate <- struct{}{}
	require.Eventually(t, h.client.IsConnected, waitFor, tick)
	assert.Equal(t, 2, h.rec.openCount())
}

func TestReconnectWaitsForSettleDelay(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	h := newHarness(t, connDialer(first, second), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	h.client.Reconnect()
	assert.Equal(t, []int{CloseNormalClosure}, first.closeCodes())
	assert.Equal(t, StateDisconnected, h.client.State())
	assert.True(t, h.clock.HasWaiters())

	h.clock.Step(99 * time.Millisecond)
	assert.EqualValues(t, 1, h.dialer.dials.Load())

	h.clock.Step(time.Millisecond)
	require.Eventually(t, h.client.IsConnected, waitFor, tick)
	assert.EqualValues(t, 2, h.dialer.dials.Load())
}

func TestReconnectResetsExhaustion(t *testing.T) {
	h := newHarness(t, &fakeDialer{}, func(cfg *Config) {
		cfg.MaxReconnectAttempts = 1
	})

	h.client.Connect()
	h.waitTimer(t)
	h.clock.Step(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return h.logs.FilterMessage("Reconnect attempts exhausted, giving up").Len() == 1
	}, waitFor, tick)
	assert.EqualValues(t, 1, h.dialer.dials.Load())

	h.client.Reconnect()
	h.clock.Step(100 * time.Millisecond)
	h.waitDials(t, 2)
}

func TestDisconnectDuringSettleCancelsReconnect(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn, newFakeConn()), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	h.client.Reconnect()
	h.client.Disconnect()
	assert.False(t, h.clock.HasWaiters())

	h.clock.Step(time.Second)
	assert.EqualValues(t, 1, h.dialer.dials.Load())
}

func TestSendMessage(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	assert.ErrorIs(t, h.client.SendMessage("early"), ErrNotConnected)
	assert.Equal(t, 1, h.logs.FilterMessage("Dropping message, not connected").Len())

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	require.NoError(t, h.client.SendMessage("hello"))
	require.NoError(t, h.client.SendJSON(map[string]string{"type": "chat_message", "content": "hi"}))
	assert.Equal(t, []string{"hello", `{"content":"hi","type":"chat_message"}`}, conn.written())

	h.client.Disconnect()
	assert.ErrorIs(t, h.client.SendMessage("late"), ErrNotConnected)
	assert.Len(t, conn.written(), 2)
}

func TestSetCallbacksUsesLatest(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	latest := &recorder{}
	h.client.SetCallbacks(latest.callbacks())

	conn.frames <- "ping"
	require.Eventually(t, func() bool { return len(latest.messages()) == 1 }, waitFor, tick)
	assert.Empty(t, h.rec.messages())
}

func TestCallbackPanicIsRecovered(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	var got []string
	var mu sync.Mutex
	h.client.SetCallbacks(Callbacks{
		OnMessage: func(m Message) {
			if m.Raw == "boom" {
				panic("bad handler")
			}
			mu.Lock()
			got = append(got, m.Raw)
			mu.Unlock()
		},
	})

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	conn.frames <- "boom"
	conn.frames <- "after"
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, waitFor, tick)

	assert.Equal(t, []string{"after"}, got)
	assert.Equal(t, 1, h.logs.FilterMessage("Callback panicked").Len())
	assert.True(t, h.client.IsConnected())
}

func TestReadErrorReportsAbnormalClose(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn, newFakeConn()), nil)

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	boom := errors.New("connection reset by peer")
	conn.remote <- boom
	require.Eventually(t, func() bool { return h.rec.closeCount() == 1 }, waitFor, tick)

	h.rec.mu.Lock()
	assert.Equal(t, CloseAbnormalClosure, h.rec.closes[0].Code)
	assert.Equal(t, []error{boom}, h.rec.errs)
	h.rec.mu.Unlock()

	h.waitTimer(t)
	assert.Equal(t, 1, h.client.Attempts())
}

func TestCallbacksMayReenterClient(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	var sendErr error
	done := make(chan struct{})
	h.client.SetCallbacks(Callbacks{
		OnOpen: func() {
			sendErr = h.client.SendMessage("hello from OnOpen")
			close(done)
		},
	})

	h.client.Connect()
	<-done
	require.NoError(t, sendErr)
	assert.Equal(t, []string{"hello from OnOpen"}, conn.written())
}

func TestFactoryCreatesIndependentClients(t *testing.T) {
	d := connDialer(newFakeConn(), newFakeConn())
	open := NewFactory(&Config{BaseURL: "ws://chat.test/ws"}, WithDialer(d))

	listRec, roomRec := &recorder{}, &recorder{}
	list, err := open("/chat-list", listRec.callbacks())
	require.NoError(t, err)
	t.Cleanup(list.Disconnect)
	room, err := open("/chat?chat_id=2", roomRec.callbacks())
	require.NoError(t, err)
	t.Cleanup(room.Disconnect)

	// Subscriptions wait for Connect.
	assert.Never(t, func() bool { return d.dials.Load() > 0 }, 50*time.Millisecond, tick)
	list.Connect()
	room.Connect()

	require.Eventually(t, func() bool { return list.IsConnected() && room.IsConnected() }, waitFor, tick)

	list.Disconnect()
	assert.False(t, list.IsConnected())
	assert.True(t, room.IsConnected())
	assert.Equal(t, "ws://chat.test/ws/chat?chat_id=2", room.(*Client).Endpoint())
}

func TestNoMessageAfterDisconnectReturns(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	var received, late atomic.Int64
	var after atomic.Bool
	h.client.SetCallbacks(Callbacks{
		OnMessage: func(Message) {
			received.Add(1)
			if after.Load() {
				late.Add(1)
			}
		},
		OnClose: func(CloseEvent) {
			if after.Load() {
				late.Add(1)
			}
		},
	})

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	// Keep frames flowing so the read loop is mid-dispatch when Disconnect lands.
	stop := make(chan struct{})
	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		for {
			select {
			case conn.frames <- "x":
			case <-stop:
				return
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		pump.Wait()
	})

	require.Eventually(t, func() bool { return received.Load() > 100 }, waitFor, tick)
	h.client.Disconnect()
	after.Store(true)

	assert.Never(t, func() bool { return late.Load() > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, StateDisconnected, h.client.State())
}

func TestDisconnectWaitsForRunningCallback(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	entered, release := make(chan struct{}), make(chan struct{})
	var after atomic.Bool
	var late atomic.Int64
	h.client.SetCallbacks(Callbacks{
		OnOpen: func() {
			close(entered)
			<-release
			if after.Load() {
				late.Add(1)
			}
		},
		OnMessage: func(Message) {
			if after.Load() {
				late.Add(1)
			}
		},
		OnClose: func(CloseEvent) {
			if after.Load() {
				late.Add(1)
			}
		},
	})

	h.client.Connect()
	<-entered

	var returned atomic.Bool
	done := make(chan struct{})
	go func() {
		h.client.Disconnect()
		returned.Store(true)
		after.Store(true)
		close(done)
	}()

	// The transport is closed right away, but Disconnect holds until OnOpen returns.
	require.Eventually(t, func() bool { return len(conn.closeCodes()) == 1 }, waitFor, tick)
	assert.Never(t, returned.Load, 50*time.Millisecond, tick)

	conn.frames <- "queued"
	close(release)
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Disconnect did not return after the callback finished")
	}

	assert.Never(t, func() bool { return late.Load() > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, StateDisconnected, h.client.State())
}

func TestDisconnectFromCallback(t *testing.T) {
	conn := newFakeConn()
	h := newHarness(t, connDialer(conn), nil)

	var calls atomic.Int64
	done := make(chan struct{})
	h.client.SetCallbacks(Callbacks{
		OnMessage: func(Message) {
			if calls.Add(1) == 1 {
				h.client.Disconnect()
				close(done)
			}
		},
	})

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	conn.frames <- "first"
	conn.frames <- "second"
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Disconnect from a callback deadlocked")
	}

	assert.Equal(t, StateDisconnected, h.client.State())
	assert.Never(t, func() bool { return calls.Load() > 1 }, 50*time.Millisecond, tick)
}

func TestReconnectFromCallback(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	h := newHarness(t, connDialer(first, second), nil)

	var once sync.Once
	h.client.SetCallbacks(Callbacks{
		OnMessage: func(m Message) {
			if m.Raw == "reset" {
				once.Do(h.client.Reconnect)
			}
		},
	})

	h.client.Connect()
	require.Eventually(t, h.client.IsConnected, waitFor, tick)

	first.frames <- "reset"
	require.Eventually(t, func() bool { return len(first.closeCodes()) == 1 }, waitFor, tick)
	h.waitTimer(t)

	h.clock.Step(100 * time.Millisecond)
	require.Eventually(t, h.client.IsConnected, waitFor, tick)
	assert.EqualValues(t, 2, h.dialer.dials.Load())
}

func TestGoroutineID(t *testing.T) {
	id := goroutineID()
	assert.NotZero(t, id)
	assert.Equal(t, id, goroutineID())

	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	assert.NotEqual(t, id, <-other)
}
