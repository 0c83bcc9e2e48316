package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/roomwire-io/roomwire/pkg/log"
)

// DefaultTimeout applies to requests whose context has no deadline.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// Client talks to the chat REST API. The session cookie set by Login is
// kept in the client's cookie jar, which is shared with WebSocket dialers
// through Jar.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout used when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api/v1".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must use the http or https scheme", baseURL)
	}

	c := &Client{baseURL: u, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Jar returns the cookie jar holding the session cookie.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "register", Credentials{Username: username, Password: password}, nil)
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "login", Credentials{Username: username, Password: password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "logout", nil, nil)
}

// WhoAmI returns the logged-in user.
func (c *Client) WhoAmI(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "whoami", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateChat creates a room owned by ownerID.
func (c *Client) CreateChat(ctx context.Context, name string, ownerID int64) (*Chat, error) {
	var chat Chat
	if err := c.do(ctx, http.MethodPost, "chat", CreateChatRequest{Name: name, OwnerID: ownerID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats returns every room with its active user count.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.do(ctx, http.MethodGet, "chat", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat returns a room and its recent messages.
func (c *Client) GetChat(ctx context.Context, id int64) (*ChatDetail, error) {
	var detail ChatDetail
	if err := c.do(ctx, http.MethodGet, "chat/"+strconv.FormatInt(id, 10), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SearchChats returns the rooms whose name starts with name, ignoring case.
func (c *Client) SearchChats(ctx context.Context, name string) ([]Chat, error) {
	var chats []Chat
	if err := c.do(ctx, http.MethodGet, "chat/name/"+url.PathEscape(name), nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// DeleteChat removes a room.
func (c *Client) DeleteChat(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "chat/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL.JoinPath(path)
	logger := log.FromContext(ctx).WithValues("method", method, "url", u.String())

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error(err, "API request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	logger.V(1).Info("API request", "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	se := &StatusError{Code: resp.StatusCode}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	switch {
	case json.Unmarshal(data, &payload) == nil && payload.Error != "":
		se.Message = payload.Error
	case payload.Message != "":
		se.Message = payload.Message
	default:
		se.Message = strings.TrimSpace(string(data))
	}
	return se
}
