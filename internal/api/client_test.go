package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"trainercal/internal/api"
	"trainercal/internal/model"
)

func testToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: sub}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newClient(t *testing.T, h http.Handler, opts ...api.Option) *api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.New(srv.URL, testToken(t, "42"), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestOwnerFromToken(t *testing.T) {
	if id, err := api.OwnerFromToken(testToken(t, "42")); err != nil || id != 42 {
		t.Errorf("OwnerFromToken() = %d, %v", id, err)
	}
	if _, err := api.OwnerFromToken(""); !errors.Is(err, api.ErrNoToken) {
		t.Errorf("OwnerFromToken(empty) error = %v", err)
	}
	if _, err := api.OwnerFromToken("not-a-jwt"); err == nil {
		t.Error("OwnerFromToken(garbage) returned no error")
	}
	if _, err := api.OwnerFromToken(testToken(t, "abc")); err == nil {
		t.Error("OwnerFromToken(non-numeric sub) returned no error")
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "://x"} {
		if _, err := api.New(u, ""); err == nil {
			t.Errorf("New(%q) returned no error", u)
		}
	}
}

func TestListSessions_QueryAndCache(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/sessions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("start_date") != "2026-01-25T05:00:00Z" || q.Get("end_date") != "2026-03-08T04:59:59Z" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if ck, err := r.Cookie(api.SessionCookie); err != nil || ck.Value == "" {
			t.Errorf("missing session cookie: %v", err)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		io.WriteString(w, `[{"id":1,"client_id":7,"session_group_id":null,"scheduled_at":"2026-02-03T15:00:00Z","duration_minutes":60,"status":"scheduled"}]`)
	})

	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	c := newClient(t, h, api.WithNow(func() time.Time { return now }))
	q := api.ListQuery{
		Start: time.Date(2026, 1, 25, 5, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 8, 4, 59, 59, 0, time.UTC),
	}

	for i := 0; i < 2; i++ {
		got, err := c.ListSessions(context.Background(), q)
		if err != nil {
			t.Fatalf("ListSessions() error = %v", err)
		}
		if len(got) != 1 || got[0].ClientID != 7 {
			t.Fatalf("ListSessions() = %+v", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("backend calls = %d, want 1 (second served from cache)", n)
	}

	now = now.Add(time.Minute)
	if _, err := c.ListSessions(context.Background(), q); err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("backend calls after TTL = %d, want 2", n)
	}
}

func TestListSessions_ClientFilterIsPartOfKey(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `[]`)
	})
	c := newClient(t, h)
	q := api.ListQuery{Start: time.Unix(0, 0), End: time.Unix(3600, 0)}
	if _, err := c.ListSessions(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	id := int64(7)
	q.ClientID = &id
	got, err := c.ListSessions(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("ListSessions() returned nil slice for empty list")
	}
	if calls.Load() != 2 {
		t.Errorf("backend calls = %d, want 2", calls.Load())
	}
}

func TestReschedule_InvalidatesCache(t *testing.T) {
	var lists atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/sessions":
			lists.Add(1)
			io.WriteString(w, `[]`)
		case r.Method == http.MethodPut && r.URL.Path == "/sessions/5":
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if len(body) != 1 || body["scheduled_at"] != "2026-02-03T18:15:00Z" {
				t.Errorf("update body = %v, want only scheduled_at", body)
			}
			io.WriteString(w, `{"id":5,"client_id":7,"scheduled_at":"2026-02-03T18:15:00Z","duration_minutes":60,"status":"scheduled"}`)
		default:
			http.NotFound(w, r)
		}
	})
	c := newClient(t, h)
	q := api.ListQuery{Start: time.Unix(0, 0), End: time.Unix(3600, 0)}
	ctx := context.Background()

	if _, err := c.ListSessions(ctx, q); err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, 2, 3, 13, 15, 0, 0, time.FixedZone("UTC-5", -5*3600))
	s, err := c.Reschedule(ctx, 5, start)
	if err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if s.ID != 5 {
		t.Errorf("Reschedule() = %+v", s)
	}
	if _, err := c.ListSessions(ctx, q); err != nil {
		t.Fatal(err)
	}
	if lists.Load() != 2 {
		t.Errorf("list calls = %d, want 2 after mutation", lists.Load())
	}
}

func TestSetStatus_NotFound(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
	})
	c := newClient(t, h)
	_, err := c.SetStatus(context.Background(), 9, model.StatusCompleted)
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("SetStatus() error = %v, want ErrNotFound", err)
	}
	var se *api.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || !strings.Contains(se.Body, "Session not found") {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestCreate_SingleVsGroup(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = nil
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		switch r.URL.Path {
		case "/sessions":
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":1,"client_id":7,"scheduled_at":"2026-02-03T15:00:00Z","duration_minutes":60,"status":"scheduled"}`)
		case "/sessions/group":
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":100,"sessions":[
				{"id":2,"client_id":7,"session_group_id":100,"scheduled_at":"2026-02-03T15:00:00Z","duration_minutes":60,"status":"scheduled"},
				{"id":3,"client_id":9,"session_group_id":100,"scheduled_at":"2026-02-03T15:00:00Z","duration_minutes":60,"status":"scheduled"}]}`)
		}
	})
	c := newClient(t, h)
	at := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	ctx := context.Background()

	single, err := c.Create(ctx, model.NewSession{ClientIDs: []int64{7}, ScheduledAt: at, DurationMinutes: 60})
	if err != nil {
		t.Fatalf("Create(single) error = %v", err)
	}
	if gotPath != "/sessions" || len(single) != 1 || gotBody["client_id"] != float64(7) {
		t.Errorf("single create: path=%s body=%v result=%+v", gotPath, gotBody, single)
	}
	if _, ok := gotBody["client_ids"]; ok {
		t.Error("single create sent client_ids")
	}

	group, err := c.Create(ctx, model.NewSession{ClientIDs: []int64{7, 9}, ScheduledAt: at, DurationMinutes: 60})
	if err != nil {
		t.Fatalf("Create(group) error = %v", err)
	}
	if gotPath != "/sessions/group" || len(group) != 2 {
		t.Errorf("group create: path=%s result=%+v", gotPath, group)
	}
	if gotBody["trainer_id"] != float64(42) {
		t.Errorf("group body trainer_id = %v, want 42", gotBody["trainer_id"])
	}

	if _, err := c.Create(ctx, model.NewSession{ScheduledAt: at, DurationMinutes: 60}); err == nil {
		t.Error("Create() without clients returned no error")
	}
}

func TestListSessions_StaleCacheOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"client_id":7,"scheduled_at":"2026-02-03T15:00:00Z","duration_minutes":60,"status":"scheduled"}]`)
	}))
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	c, err := api.New(srv.URL, testToken(t, "42"), api.WithNow(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	q := api.ListQuery{Start: time.Unix(0, 0), End: time.Unix(3600, 0)}
	if _, err := c.ListSessions(context.Background(), q); err != nil {
		t.Fatal(err)
	}

	srv.Close()
	now = now.Add(time.Hour)
	got, err := c.ListSessions(context.Background(), q)
	if err != nil {
		t.Fatalf("ListSessions() with backend down error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("stale copy = %+v", got)
	}
}
