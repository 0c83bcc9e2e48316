package ws

// Subscriber is the part of *Client that views depend on.
type Subscriber interface {
	Connect()
	Disconnect()
	Reconnect()
	SendMessage(text string) error
	SendJSON(v any) error
	IsConnected() bool
}

var _ Subscriber = (*Client)(nil)

// Factory creates a subscription to path with the given callbacks. The
// subscription does not connect until its Connect is called, so the caller
// can finish wiring before the first callback.
type Factory func(path string, cb Callbacks) (Subscriber, error)

// NewFactory returns a Factory creating clients from a copy of cfg. Each
// subscription gets its own Client; nothing is shared between them.
func NewFactory(cfg *Config, opts ...Option) Factory {
	return func(path string, cb Callbacks) (Subscriber, error) {
		c := *cfg
		c.Callbacks = cb
		c.ManualConnect = true
		return NewClient(path, &c, opts...)
	}
}
