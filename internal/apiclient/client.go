// Package apiclient talks to the console's JSON API. It is the remote record
// source for code book tables.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/platform/httpx"
	"github.com/loomworks/erpconsole/internal/shared"
)

// APIPrefix is prepended to every endpoint path.
const APIPrefix = "/api/v1"

const maxResponseBytes = 8 << 20

// Client wraps interactions with the console API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	activity   *shared.Activity

	mu    sync.RWMutex
	token string

	onUnauthorized func()
	unauthorized   atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 30s-timeout HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithActivity marks a as busy for the duration of every request.
func WithActivity(a *shared.Activity) Option {
	return func(c *Client) { c.activity = a }
}

// OnUnauthorized registers fn to run the first time the server answers 401.
// It runs at most once per client.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New constructs a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		validate: codebook.NewValidator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// User is the signed-in account.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Login exchanges credentials for a bearer token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	req := loginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := c.check(req); err != nil {
		return Session{}, err
	}
	var sess Session
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &sess); err != nil {
		return Session{}, err
	}
	c.setToken(sess.Token)
	return sess, nil
}

// Logout revokes the token on the server. The local token is dropped even
// when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.setToken("")
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	return err
}

// check validates v before anything is sent.
func (c *Client) check(v any) error {
	err := codebook.ValidateRecord(c.validate, v)
	if err == nil {
		return nil
	}
	var fe httpx.FieldErrors
	if errors.As(err, &fe) {
		return ValidationErrors(fe)
	}
	return err
}

type envelope struct {
	Status      bool              `json:"status"`
	Message     string            `json:"message"`
	StatusCode  int               `json:"status_code"`
	Data        json.RawMessage   `json:"data"`
	DataList    json.RawMessage   `json:"dataList"`
	Total       *int              `json:"total"`
	CurrentPage *int              `json:"currentPage"`
	TotalPages  *int              `json:"totalPages"`
	Errors      map[string]string `json:"errors"`
}

// do sends one request and decodes the envelope. When data is non-nil the
// envelope's data member is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, data any) (*envelope, error) {
	activity := c.activity
	if activity == nil {
		activity = shared.ActivityFromContext(ctx)
	}
	done := activity.Begin()
	defer done()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	target := c.baseURL + APIPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrNetwork, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.setToken("")
		if c.onUnauthorized != nil && c.unauthorized.CompareAndSwap(false, true) {
			c.onUnauthorized()
		}
		return nil, fmt.Errorf("%w: %s %s", ErrUnauthorized, method, path)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("apiclient: decode %s: %w", path, err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		status := resp.StatusCode
		if status < 300 && env.StatusCode != 0 {
			status = env.StatusCode
		}
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, &APIError{StatusCode: status, Message: msg, Fields: env.Errors}
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return nil, fmt.Errorf("apiclient: decode %s data: %w", path, err)
		}
	}
	return &env, nil
}
