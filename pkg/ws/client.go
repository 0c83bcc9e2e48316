package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/roomwire-io/roomwire/internal/pkg/metrics"
	fsmutil "github.com/roomwire-io/roomwire/internal/pkg/util/fsm"
	"github.com/roomwire-io/roomwire/pkg/log"
)

const (
	eventDial  = "dial"
	eventOpen  = "open"
	eventClose = "close"
	eventDrop  = "drop"
)

var allStates = []string{
	string(StateDisconnected),
	string(StateConnecting),
	string(StateConnected),
	string(StateClosing),
}

// Client is a reconnecting WebSocket subscription to a single endpoint.
//
// Each transport is served by one goroutine which delivers OnOpen, OnMessage
// and OnClose in transport order. Callbacks run outside the client's lock, so
// they may call back into the client, including Disconnect and Reconnect.
type Client struct {
	cfg      Config
	path     string
	endpoint string
	label    string

	dialer Dialer
	clock  clock.WithDelayedExecution
	logger log.Logger

	callbacks atomic.Pointer[Callbacks]

	mu        sync.Mutex
	fsm       *fsm.FSM
	conn      Conn
	desired   bool
	attempts  int
	exhausted bool

	// gen identifies the current connect attempt. A session whose gen no
	// longer matches has been superseded and must not touch client state.
	gen uint64

	// timer is the pending reconnect or settle timer. timerSeq invalidates a
	// timer that fired concurrently with Stop.
	timer    clock.Timer
	timerSeq uint64

	// dmu is held while a callback runs. dispatcher is the goroutine running
	// it, so that Disconnect from inside a callback does not wait on itself.
	dmu        sync.Mutex
	dispatcher atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithClock replaces the clock used for reconnect and settle timers.
func WithClock(clk clock.WithDelayedExecution) Option {
	return func(c *Client) { c.clock = clk }
}

// WithLogger replaces the logger. The default is the global logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for BaseURL+path. Unless cfg.ManualConnect is
// set, it starts connecting before returning.
func NewClient(path string, cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrMissingBaseURL
	}

	c := &Client{cfg: *cfg, path: path}
	setDefaultConfig(&c.cfg)

	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ws config: %w", err)
	}

	c.endpoint = c.cfg.BaseURL + path
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ws endpoint %q: %w", c.endpoint, err)
	}
	c.label = u.Path

	c.dialer = NewDialer(&c.cfg)
	c.clock = clock.RealClock{}
	c.logger = log.Std()
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithValues("endpoint", c.endpoint)

	cb := c.cfg.Callbacks
	c.callbacks.Store(&cb)
	c.fsm = c.newStateMachine()

	if !c.cfg.ManualConnect {
		c.Connect()
	}
	return c, nil
}

func (c *Client) newStateMachine() *fsm.FSM {
	events := fsm.Events{
		{Name: eventDial, Src: []string{string(StateDisconnected)}, Dst: string(StateConnecting)},
		{Name: eventOpen, Src: []string{string(StateConnecting)}, Dst: string(StateConnected)},
		{Name: eventClose, Src: []string{string(StateConnecting), string(StateConnected)}, Dst: string(StateClosing)},
		{Name: eventDrop, Src: []string{string(StateConnecting), string(StateConnected), string(StateClosing)}, Dst: string(StateDisconnected)},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(c.onEnterState),
	}

	metrics.SetConnectionState(c.label, string(StateDisconnected), allStates)
	return fsm.NewFSM(string(StateDisconnected), events, callbacks)
}

func (c *Client) onEnterState(_ context.Context, e *fsm.Event) error {
	metrics.SetConnectionState(c.label, e.Dst, allStates)
	c.debug("State changed", "from", e.Src, "to", e.Dst)
	return nil
}

// fire must be called with c.mu held.
func (c *Client) fire(event string) {
	if err := fsmutil.Fire(context.Background(), c.fsm, event); err != nil {
		c.debug("Ignoring state event", "event", event, "state", c.fsm.Current(), "error", err)
	}
}

// Connect marks the connection as desired and starts a connect attempt in
// the background. It is a no-op while connecting or connected, and once
// MaxReconnectAttempts reconnects have been made since the last open.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.desired = true
	c.connectLocked()
}

func (c *Client) connectLocked() {
	if !c.desired {
		return
	}

	switch State(c.fsm.Current()) {
	case StateConnecting, StateConnected, StateClosing:
		c.debug("Connect skipped, transport already in use", "state", c.fsm.Current())
		return
	}

	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.giveUpLocked()
		return
	}

	c.stopTimerLocked()
	c.gen++
	c.fire(eventDial)

	c.debug("Connecting", "attempt", c.attempts)
	go c.session(c.gen)
}

// session owns one transport from dial to close.
func (c *Client) session(gen uint64) {
	owner := goroutineID()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	conn, err := c.dialer.Dial(ctx, c.endpoint)
	cancel()

	if err != nil {
		if !c.current(gen) {
			return
		}
		c.debug("Dial failed", "error", err)
		c.dispatch(gen, owner, "OnError", func(cb *Callbacks) {
			if cb.OnError != nil {
				cb.OnError(err)
			}
		})
		c.handleClose(gen, owner, CloseEvent{Code: CloseAbnormalClosure, Reason: err.Error()})
		return
	}

	if !c.promote(gen, conn) {
		c.debug("Closing transport opened after disconnect")
		if err := conn.Close(CloseNormalClosure, ""); err != nil {
			c.debug("Close failed", "error", err)
		}
		return
	}

	c.dispatch(gen, owner, "OnOpen", func(cb *Callbacks) {
		if cb.OnOpen != nil {
			cb.OnOpen()
		}
	})

	for {
		text, err := conn.ReadMessage()
		if err != nil {
			ev := CloseEvent{Code: CloseAbnormalClosure, Reason: err.Error()}

			var ce *CloseError
			if errors.As(err, &ce) {
				ev = CloseEvent{Code: ce.Code, Reason: ce.Reason}
			} else {
				c.dispatch(gen, owner, "OnError", func(cb *Callbacks) {
					if cb.OnError != nil {
						cb.OnError(err)
					}
				})
			}

			c.handleClose(gen, owner, ev)
			return
		}

		if !c.current(gen) {
			return
		}

		msg := parseFrame(text)
		kind := metrics.KindRaw
		if msg.Structured {
			kind = metrics.KindStructured
		}
		metrics.FramesReceived.WithLabelValues(c.label, kind).Inc()

		c.dispatch(gen, owner, "OnMessage", func(cb *Callbacks) {
			if cb.OnMessage != nil {
				cb.OnMessage(msg)
			}
		})
	}
}

// promote installs conn as the active transport if the attempt is still current.
func (c *Client) promote(gen uint64, conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || !c.desired {
		return false
	}

	c.conn = conn
	c.attempts = 0
	c.exhausted = false
	metrics.ReconnectAttempts.WithLabelValues(c.label).Set(0)
	c.fire(eventOpen)
	return true
}

func (c *Client) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return gen == c.gen && c.desired
}

func (c *Client) handleClose(gen, owner uint64, ev CloseEvent) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.fire(eventDrop)
	c.mu.Unlock()

	c.debug("Connection closed", "code", ev.Code, "reason", ev.Reason)
	c.dispatch(gen, owner, "OnClose", func(cb *Callbacks) {
		if cb.OnClose != nil {
			cb.OnClose(ev)
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	// OnClose may have called Connect or Disconnect.
	if gen != c.gen || !c.desired || !c.cfg.reconnectEnabled() || ev.Normal() {
		return
	}
	c.scheduleReconnectLocked()
}

func (c *Client) scheduleReconnectLocked() {
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.giveUpLocked()
		return
	}

	c.attempts++
	delay := backoffDelay(c.cfg.ReconnectInterval, c.attempts)
	metrics.ReconnectAttempts.WithLabelValues(c.label).Set(float64(c.attempts))
	metrics.ReconnectsScheduled.WithLabelValues(c.label).Inc()

	c.debug("Scheduling reconnect", "attempt", c.attempts, "max", c.cfg.MaxReconnectAttempts, "delay", delay)
	c.startTimerLocked(delay, func() {
		c.connectLocked()
	})
}

func (c *Client) giveUpLocked() {
	if !c.exhausted {
		c.exhausted = true
		c.logger.Warn("Reconnect attempts exhausted, giving up", "attempts", c.attempts)
	}
}

// startTimerLocked replaces the pending timer. fn runs with c.mu held, and
// only if the timer was not stopped or replaced in the meantime.
func (c *Client) startTimerLocked(delay time.Duration, fn func()) {
	c.stopTimerLocked()

	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if seq != c.timerSeq {
			return
		}
		c.timer = nil
		fn()
	})
}

func (c *Client) stopTimerLocked() {
	c.timerSeq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Disconnect tears the connection down and cancels any pending timer. It
// waits for a callback running on another goroutine to return, and after it
// returns no callback fires until Connect or Reconnect is called.
// It is safe to call repeatedly, before any connect, and from a callback.
func (c *Client) Disconnect() {
	c.mu.Lock()

	c.desired = false
	c.gen++
	c.stopTimerLocked()

	conn := c.conn
	c.conn = nil
	if State(c.fsm.Current()) != StateDisconnected {
		c.fire(eventClose)
		c.fire(eventDrop)
	}

	c.attempts = 0
	c.exhausted = false
	metrics.ReconnectAttempts.WithLabelValues(c.label).Set(0)
	c.mu.Unlock()

	if conn != nil {
		c.debug("Disconnecting")
		if err := conn.Close(CloseNormalClosure, ""); err != nil {
			c.debug("Close failed", "error", err)
		}
	}

	// Wait out a callback already past its gen check.
	if c.dispatcher.Load() != goroutineID() {
		c.dmu.Lock()
		c.dmu.Unlock()
	}
}

// Reconnect forces a fresh session: it disconnects, waits for the settle
// delay, then connects with a reset attempt count. Disconnect during the
// settle delay cancels it.
func (c *Client) Reconnect() {
	c.Disconnect()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTimerLocked(c.cfg.SettleDelay, func() {
		c.desired = true
		c.attempts = 0
		c.exhausted = false
		c.connectLocked()
	})
}

// SendMessage writes text as a single frame. It does not queue: when the
// client is not connected nothing is written and ErrNotConnected is returned.
func (c *Client) SendMessage(text string) error {
	c.mu.Lock()
	conn := c.conn
	if State(c.fsm.Current()) != StateConnected {
		conn = nil
	}
	c.mu.Unlock()

	if conn == nil {
		c.debug("Dropping message, not connected")
		metrics.MessagesSent.WithLabelValues(c.label, metrics.StatusDropped).Inc()
		return ErrNotConnected
	}

	if err := conn.WriteMessage(text); err != nil {
		metrics.MessagesSent.WithLabelValues(c.label, metrics.StatusFailed).Inc()
		return fmt.Errorf("send message: %w", err)
	}

	metrics.MessagesSent.WithLabelValues(c.label, metrics.StatusSuccess).Inc()
	return nil
}

// SendJSON encodes v and sends it with SendMessage.
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.SendMessage(string(data))
}

// SetCallbacks replaces the callback set. Events dispatched after it returns
// use the new set.
func (c *Client) SetCallbacks(cb Callbacks) {
	c.callbacks.Store(&cb)
}

// IsConnected reports whether the client holds an open transport.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.fsm.Current())
}

// Attempts returns the number of automatic reconnects since the last open.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

// Endpoint returns the full address the client dials.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// dispatch runs fn against the current callback set if gen is still the
// active attempt.
func (c *Client) dispatch(gen, owner uint64, name string, fn func(cb *Callbacks)) {
	c.dmu.Lock()
	defer c.dmu.Unlock()

	if !c.current(gen) {
		return
	}
	cb := c.callbacks.Load()
	if cb == nil {
		return
	}

	c.dispatcher.Store(owner)
	defer c.dispatcher.Store(0)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(fmt.Errorf("panic: %v", r), "Callback panicked", "callback", name)
		}
	}()
	fn(cb)
}

func (c *Client) debug(msg string, keysAndValues ...any) {
	if c.cfg.Debug {
		c.logger.Debug(msg, keysAndValues...)
	}
}
