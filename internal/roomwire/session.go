// Package roomwire implements the roomwire terminal client: the REST
// commands and the live room list and chat views.
package roomwire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gosuri/uitable"

	"github.com/roomwire-io/roomwire/internal/pkg/metrics"
	"github.com/roomwire-io/roomwire/internal/pkg/server"
	"github.com/roomwire-io/roomwire/internal/transcript"
	"github.com/roomwire-io/roomwire/pkg/api"
	"github.com/roomwire-io/roomwire/pkg/log"
	"github.com/roomwire-io/roomwire/pkg/ws"
)

// ErrNoCredentials is returned by commands that need an account when no
// username or password is configured.
var ErrNoCredentials = errors.New("--api.username and --api.password are required")

// Session holds the collaborators shared by all commands.
type Session struct {
	cfg     *Config
	api     *api.Client
	factory ws.Factory
	store   *transcript.Store
	in      io.Reader
	out     *printer

	me    *api.User
	ready atomic.Pointer[func() bool]
}

// Close logs out and releases the transcript store.
func (s *Session) Close() error {
	if s.me != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.APIOptions.Timeout)
		defer cancel()
		if err := s.api.Logout(ctx); err != nil {
			log.Debug("Logout failed", "error", err)
		}
		s.me = nil
	}
	return s.store.Close()
}

// Login authenticates with the configured account. The session cookie it
// yields is shared with every socket the session opens.
func (s *Session) Login(ctx context.Context) (*api.User, error) {
	if s.me != nil {
		return s.me, nil
	}

	o := s.cfg.APIOptions
	if o.Username == "" || o.Password == "" {
		return nil, ErrNoCredentials
	}

	user, err := s.api.Login(ctx, o.Username, o.Password)
	if err != nil {
		return nil, fmt.Errorf("login as %q: %w", o.Username, err)
	}
	log.Info("Logged in", "username", user.Username, "id", user.ID)
	s.me = user
	return user, nil
}

// setReady publishes the readiness of the running view to /readyz.
func (s *Session) setReady(fn func() bool) {
	s.ready.Store(&fn)
}

func (s *Session) isReady() bool {
	fn := s.ready.Load()
	return fn != nil && (*fn)()
}

// run executes view next to the optional metrics server. The metrics server
// stops when the view returns.
func (s *Session) run(ctx context.Context, view func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runnables := []server.Runnable{
		server.RunnableFunc(func(ctx context.Context) error {
			defer cancel()
			return view(ctx)
		}),
	}

	if m := s.cfg.MetricsOptions; m.Enabled() {
		runnables = append(runnables, server.New("metrics", m.Addr,
			server.WithHandler(m.Path, metrics.Handler()),
			server.WithReadiness(s.isReady),
		))
	}

	return server.Run(ctx, runnables...)
}

// printer serializes writes from the socket goroutines and the input loop.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) Println(args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintln(p.w, args...)
}

func chatTable(chats []api.Chat) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("ID", "NAME", "MEMBERS", "CREATED")
	for _, c := range chats {
		created := "-"
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		table.AddRow(c.ID, c.Name, c.ActiveUsers, created)
	}
	return table
}
