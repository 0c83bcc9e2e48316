package ws

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config holds the configuration for creating a new Client.
type Config struct {
	// BaseURL is the WebSocket base address, e.g. "ws://localhost:8080/ws".
	// The endpoint of a client is BaseURL followed by its path.
	BaseURL string

	// Callbacks is the initial callback set. Use Client.SetCallbacks to replace it.
	Callbacks Callbacks

	// Debug enables diagnostic logging at debug level.
	Debug bool

	// ShouldReconnect enables automatic reconnection after an abnormal close.
	// Nil means true.
	ShouldReconnect *bool

	// ReconnectInterval is the base backoff unit. Default is 1s.
	ReconnectInterval time.Duration

	// MaxReconnectAttempts caps automatic reconnect attempts. Zero means the
	// default of 5; set ShouldReconnect to false to disable reconnection.
	MaxReconnectAttempts int

	// SettleDelay is the pause between teardown and connect in Reconnect. Default is 100ms.
	SettleDelay time.Duration

	// HandshakeTimeout bounds a single dial. Default is 10s.
	HandshakeTimeout time.Duration

	// Header and Jar are sent with the opening handshake.
	// The chat backend authenticates sockets with the session cookie held in Jar.
	Header http.Header
	Jar    http.CookieJar

	// ManualConnect stops NewClient from connecting immediately.
	ManualConnect bool
}

var (
	// ErrMissingBaseURL is returned by NewClient when no base address is configured.
	ErrMissingBaseURL = errors.New("ws base url is required")

	// ErrNotConnected is returned by SendMessage when the client is not connected.
	ErrNotConnected = errors.New("ws client is not connected")
)

// Bool returns a pointer to v, for use with Config.ShouldReconnect.
func Bool(v bool) *bool {
	return &v
}

// setDefaultConfig applies default values to the configuration.
func setDefaultConfig(cfg *Config) {
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = time.Second
	}

	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = 5
	}

	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 100 * time.Millisecond
	}

	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid ws base url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("ws base url %q must use the ws or wss scheme", c.BaseURL)
	}

	if c.ReconnectInterval < 0 || c.SettleDelay < 0 || c.HandshakeTimeout < 0 {
		return errors.New("ws durations must not be negative")
	}
	if c.MaxReconnectAttempts < 0 {
		return errors.New("ws max reconnect attempts must not be negative")
	}
	return nil
}

func (c *Config) reconnectEnabled() bool {
	return c.ShouldReconnect == nil || *c.ShouldReconnect
}
