package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "trainercal/internal/log"
	"trainercal/internal/model"
)

const (
	// SessionCookie is the cookie the backend reads the trainer token from.
	SessionCookie = "trainer_session"

	defaultTimeout  = 15 * time.Second
	defaultCacheTTL = 30 * time.Second
)

// ErrNotFound matches backend 404 responses via errors.Is.
var ErrNotFound = errors.New("api: not found")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.Code, strings.TrimSpace(e.Body))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// ListQuery selects sessions for one calendar window.
type ListQuery struct {
	Start time.Time
	End   time.Time
	// ClientID narrows the fetch server-side when exactly one client is selected.
	ClientID *int64
}

// listKey identifies one cached fetch.
type listKey struct {
	owner    int64
	start    int64
	end      int64
	clientID int64
}

type listEntry struct {
	sessions  []model.TrainingSession
	updatedAt time.Time
}

// Client talks to the session backend. List results are cached per
// (owner, window, client filter) for a short TTL; every mutation drops the
// whole cache so the next render sees the backend's state.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	cache map[listKey]listEntry
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCacheTTL sets the list cache lifetime; zero or negative disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New builds a Client for baseURL (e.g. "http://127.0.0.1:8000") authenticating
// with the trainer session token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: base url %q needs scheme and host", baseURL)
	}
	c := &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		ttl:     defaultCacheTTL,
		now:     time.Now,
		cache:   make(map[listKey]listEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSessions returns the trainer's sessions scheduled inside q, ordered by
// start. When the backend is unreachable and a cached copy exists, the stale
// copy is returned.
func (c *Client) ListSessions(ctx context.Context, q ListQuery) ([]model.TrainingSession, error) {
	owner, err := c.OwnerID()
	if err != nil {
		return nil, err
	}
	key := listKey{owner: owner, start: q.Start.Unix(), end: q.End.Unix()}
	if q.ClientID != nil {
		key.clientID = *q.ClientID
	}

	c.mu.RLock()
	entry, cached := c.cache[key]
	c.mu.RUnlock()
	if cached && c.ttl > 0 && c.now().Sub(entry.updatedAt) < c.ttl {
		return entry.sessions, nil
	}

	params := url.Values{}
	params.Set("start_date", q.Start.UTC().Format(time.RFC3339))
	params.Set("end_date", q.End.UTC().Format(time.RFC3339))
	if q.ClientID != nil {
		params.Set("client_id", strconv.FormatInt(*q.ClientID, 10))
	}

	var sessions []model.TrainingSession
	if err := c.do(ctx, http.MethodGet, "/sessions", params, nil, &sessions); err != nil {
		var se *StatusError
		if cached && !errors.As(err, &se) {
			appLog.Error("api: session list failed, using cached copy", err, "owner", owner)
			return entry.sessions, nil
		}
		return nil, err
	}
	if sessions == nil {
		sessions = []model.TrainingSession{}
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.cache[key] = listEntry{sessions: sessions, updatedAt: c.now()}
		c.mu.Unlock()
	}
	appLog.Debug("api: sessions fetched", "owner", owner, "count", len(sessions),
		"start", params.Get("start_date"), "end", params.Get("end_date"))
	return sessions, nil
}

// ListClients returns the trainer's clients, used to label grid blocks.
func (c *Client) ListClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := c.do(ctx, http.MethodGet, "/clients", nil, nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Reschedule moves a session; only scheduled_at changes.
func (c *Client) Reschedule(ctx context.Context, sessionID int64, start time.Time) (model.TrainingSession, error) {
	body := struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}{ScheduledAt: start.UTC()}
	return c.updateSession(ctx, sessionID, body)
}

// SetStatus changes only the status of a session.
func (c *Client) SetStatus(ctx context.Context, sessionID int64, status model.Status) (model.TrainingSession, error) {
	body := struct {
		Status model.Status `json:"status"`
	}{Status: status}
	return c.updateSession(ctx, sessionID, body)
}

// TogglePayment flips the paid flag of a session.
func (c *Client) TogglePayment(ctx context.Context, sessionID int64) (model.TrainingSession, error) {
	var out model.TrainingSession
	path := "/sessions/" + strconv.FormatInt(sessionID, 10) + "/payment"
	if err := c.do(ctx, http.MethodPatch, path, nil, nil, &out); err != nil {
		return model.TrainingSession{}, err
	}
	c.Invalidate()
	return out, nil
}

func (c *Client) updateSession(ctx context.Context, sessionID int64, body any) (model.TrainingSession, error) {
	var out model.TrainingSession
	path := "/sessions/" + strconv.FormatInt(sessionID, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, body, &out); err != nil {
		return model.TrainingSession{}, err
	}
	c.Invalidate()
	return out, nil
}

// Create books n at its time slot. One client creates a plain session; more
// than one creates a session group with one session per client.
func (c *Client) Create(ctx context.Context, n model.NewSession) ([]model.TrainingSession, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if len(n.ClientIDs) == 1 {
		s, err := c.createSingle(ctx, n)
		if err != nil {
			return nil, err
		}
		return []model.TrainingSession{s}, nil
	}
	return c.createGroup(ctx, n)
}

func (c *Client) createSingle(ctx context.Context, n model.NewSession) (model.TrainingSession, error) {
	body := struct {
		ClientID        int64        `json:"client_id"`
		LocationID      *int64       `json:"location_id,omitempty"`
		ScheduledAt     time.Time    `json:"scheduled_at"`
		DurationMinutes int          `json:"duration_minutes"`
		Notes           *string      `json:"notes,omitempty"`
		Status          model.Status `json:"status"`
	}{
		ClientID:        n.ClientIDs[0],
		LocationID:      n.LocationID,
		ScheduledAt:     n.ScheduledAt.UTC(),
		DurationMinutes: n.DurationMinutes,
		Notes:           n.Notes,
		Status:          model.StatusScheduled,
	}
	var out model.TrainingSession
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, body, &out); err != nil {
		return model.TrainingSession{}, err
	}
	c.Invalidate()
	return out, nil
}

func (c *Client) createGroup(ctx context.Context, n model.NewSession) ([]model.TrainingSession, error) {
	owner, err := c.OwnerID()
	if err != nil {
		return nil, err
	}
	body := struct {
		TrainerID       int64     `json:"trainer_id"`
		ClientIDs       []int64   `json:"client_ids"`
		LocationID      *int64    `json:"location_id,omitempty"`
		ScheduledAt     time.Time `json:"scheduled_at"`
		DurationMinutes int       `json:"duration_minutes"`
		Notes           *string   `json:"notes,omitempty"`
	}{
		TrainerID:       owner,
		ClientIDs:       n.ClientIDs,
		LocationID:      n.LocationID,
		ScheduledAt:     n.ScheduledAt.UTC(),
		DurationMinutes: n.DurationMinutes,
		Notes:           n.Notes,
	}
	var out struct {
		ID       int64                   `json:"id"`
		Sessions []model.TrainingSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions/group", nil, body, &out); err != nil {
		return nil, err
	}
	c.Invalidate()
	return out.Sessions, nil
}

// Invalidate drops every cached list.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[listKey]listEntry)
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.token})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	appLog.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(msg)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}
