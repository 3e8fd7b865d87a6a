package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"wellcheck/internal/attendance"
	"wellcheck/internal/project"
	"wellcheck/internal/team"
	"wellcheck/internal/user"
)

const genericMessage = "something went wrong, please try again"

// APIError is a non-2xx response. Message is the backend's error text when it
// sent one, otherwise a generic message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Stale reports whether the backend rejected the action because the caller's
// view of today's records is out of date.
func (e *APIError) Stale() bool {
	return e.Status == http.StatusConflict
}

// Client calls the wellcheck REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL (without the /api suffix).
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, in user.RegisterInput) (user.User, error) {
	var out user.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out)
	return out, err
}

// Login signs in and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (user.Session, error) {
	var out user.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", user.LoginInput{Email: email, Password: password}, &out); err != nil {
		return user.Session{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// Today returns the caller's records for the current day.
func (c *Client) Today(ctx context.Context) ([]attendance.Record, error) {
	var out []attendance.Record
	err := c.do(ctx, http.MethodGet, "/api/checkins/today", nil, &out)
	return out, err
}

// Warning returns the caller's dashboard warning and its message.
func (c *Client) Warning(ctx context.Context) (attendance.Warning, string, error) {
	var out struct {
		Warning attendance.Warning `json:"warning"`
		Message string             `json:"message"`
	}
	err := c.do(ctx, http.MethodGet, "/api/checkins/warning", nil, &out)
	return out.Warning, out.Message, err
}

// Submit posts a check-in or check-out.
func (c *Client) Submit(ctx context.Context, sub attendance.Submission) (attendance.Record, error) {
	var out attendance.Record
	err := c.do(ctx, http.MethodPost, "/api/checkins", sub, &out)
	return out, err
}

// Profile returns the caller's profile.
func (c *Client) Profile(ctx context.Context) (user.User, error) {
	var out user.User
	err := c.do(ctx, http.MethodGet, "/api/user/profile", nil, &out)
	return out, err
}

// Users lists all users.
func (c *Client) Users(ctx context.Context) ([]user.User, error) {
	var out []user.User
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

// Teams lists all teams.
func (c *Client) Teams(ctx context.Context) ([]team.Team, error) {
	var out []team.Team
	err := c.do(ctx, http.MethodGet, "/api/teams", nil, &out)
	return out, err
}

// Projects lists all projects with their teams expanded.
func (c *Client) Projects(ctx context.Context) ([]project.Detail, error) {
	var out []project.Detail
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: genericMessage}
		var payload struct {
			Error string `json:"error"`
		}
		if raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
