package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/roomwire-io/roomwire/pkg/ws"
)

var _ IOptions = (*WSOptions)(nil)

// WSOptions contains configuration for the reconnecting WebSocket clients.
type WSOptions struct {
	BaseURL string `json:"base-url" mapstructure:"base-url"`
	Debug   bool   `json:"debug" mapstructure:"debug"`

	// Reconnect policy
	Reconnect            bool          `json:"reconnect" mapstructure:"reconnect"`
	ReconnectInterval    time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`
	MaxReconnectAttempts int           `json:"max-reconnect-attempts" mapstructure:"max-reconnect-attempts"`
	SettleDelay          time.Duration `json:"settle-delay" mapstructure:"settle-delay"`

	HandshakeTimeout time.Duration `json:"handshake-timeout" mapstructure:"handshake-timeout"`
}

// NewWSOptions creates a new WSOptions with default values.
func NewWSOptions() *WSOptions {
	return &WSOptions{
		BaseURL:              "ws://localhost:8080/ws",
		Reconnect:            true,
		ReconnectInterval:    time.Second,
		MaxReconnectAttempts: 5,
		SettleDelay:          100 * time.Millisecond,
		HandshakeTimeout:     10 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *WSOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if err := ValidateURL("ws.base-url", o.BaseURL, "ws", "wss"); err != nil {
		errs = append(errs, err)
	}
	if o.ReconnectInterval <= 0 {
		errs = append(errs, errors.New("--ws.reconnect-interval must be greater than 0"))
	}
	if o.MaxReconnectAttempts < 1 {
		errs = append(errs, errors.New("--ws.max-reconnect-attempts must be at least 1"))
	}
	if o.SettleDelay < 0 || o.HandshakeTimeout < 0 {
		errs = append(errs, errors.New("--ws.settle-delay and --ws.handshake-timeout must not be negative"))
	}

	return errs
}

// AddFlags adds flags for WSOptions to the specified FlagSet.
func (o *WSOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "ws.base-url", o.BaseURL, "WebSocket base address; subscription paths are appended to it.")
	fs.BoolVar(&o.Debug, "ws.debug", o.Debug, "Log connection diagnostics at debug level.")

	fs.BoolVar(&o.Reconnect, "ws.reconnect", o.Reconnect, "Reconnect automatically after an abnormal close.")
	fs.DurationVar(&o.ReconnectInterval, "ws.reconnect-interval", o.ReconnectInterval, "Base backoff interval; attempt n waits interval*1.5^(n-1).")
	fs.IntVar(&o.MaxReconnectAttempts, "ws.max-reconnect-attempts", o.MaxReconnectAttempts, "Maximum automatic reconnect attempts before giving up.")
	fs.DurationVar(&o.SettleDelay, "ws.settle-delay", o.SettleDelay, "Pause between teardown and connect on a forced reconnect.")
	fs.DurationVar(&o.HandshakeTimeout, "ws.handshake-timeout", o.HandshakeTimeout, "Timeout for the opening handshake.")
}

// ToClientConfig returns a ws.Config carrying these options. Callbacks and the
// cookie jar are left for the caller.
func (o *WSOptions) ToClientConfig() *ws.Config {
	return &ws.Config{
		BaseURL:              o.BaseURL,
		Debug:                o.Debug,
		ShouldReconnect:      ws.Bool(o.Reconnect),
		ReconnectInterval:    o.ReconnectInterval,
		MaxReconnectAttempts: o.MaxReconnectAttempts,
		SettleDelay:          o.SettleDelay,
		HandshakeTimeout:     o.HandshakeTimeout,
	}
}
