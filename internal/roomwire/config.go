package roomwire

import (
	"fmt"
	"io"
	"os"

	"github.com/roomwire-io/roomwire/internal/transcript"
	"github.com/roomwire-io/roomwire/pkg/api"
	"github.com/roomwire-io/roomwire/pkg/log"
	"github.com/roomwire-io/roomwire/pkg/options"
	"github.com/roomwire-io/roomwire/pkg/ws"
)

// Config is the completed configuration of a roomwire session.
type Config struct {
	WSOptions      *options.WSOptions
	APIOptions     *options.APIOptions
	MetricsOptions *options.MetricsOptions
	StoreOptions   *options.StoreOptions

	// In and Out default to the process's stdin and stdout.
	In  io.Reader
	Out io.Writer
}

// NewSession wires the REST client, the socket factory and the transcript
// store. The WebSocket configuration is validated here so a missing base URL
// fails before anything is dialed.
func (cfg *Config) NewSession() (*Session, error) {
	apiClient, err := api.NewClient(cfg.APIOptions.URL, api.WithTimeout(cfg.APIOptions.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to init api client: %w", err)
	}

	wsCfg := cfg.WSOptions.ToClientConfig()
	wsCfg.Jar = apiClient.Jar()
	if err := wsCfg.Validate(); err != nil {
		return nil, err
	}

	store, err := transcript.Open(cfg.StoreOptions.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript store: %w", err)
	}

	in, out := cfg.In, cfg.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	return &Session{
		cfg:     cfg,
		api:     apiClient,
		factory: ws.NewFactory(wsCfg, ws.WithLogger(log.WithName("ws"))),
		store:   store,
		in:      in,
		out:     newPrinter(out),
	}, nil
}
