package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	adapthttp "diary/internal/adapter/http"
	"diary/internal/adapter/memory"
	"diary/internal/app"
	"diary/internal/domain"
)

// ---------------------------------------------------------------------------
// Test-server helpers
// ---------------------------------------------------------------------------

type testEnv struct {
	ts   *httptest.Server
	db   *memory.DB
	auth *app.AuthService
}

func newTestEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()

	db := memory.New()
	authSvc := app.NewAuthService(db, db.NewSessionRepo())
	t.Cleanup(authSvc.Close)

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := adapthttp.New(
		app.NewEntryService(db),
		app.NewCalendarService(db),
		authSvc,
		adapthttp.OIDCConfig{},
		nil,
		webDir,
	)
	if !withAuth {
		srv = srv.WithoutAuth()
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, db: db, auth: authSvc}
}

func newTestServer(t *testing.T) *testEnv {
	return newTestEnv(t, false)
}

func (e *testEnv) seed(t *testing.T, entries ...domain.HeadacheEntry) {
	t.Helper()
	for _, en := range entries {
		if err := e.db.SaveEntry(context.Background(), en); err != nil {
			t.Fatal(err)
		}
	}
}

func do(t *testing.T, method, url string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodGet, env.ts.URL+"/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q; want no-store", got)
	}
	body := decodeBody(t, resp)
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
}

func TestCreateAndGetEntry(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodPost, env.ts.URL+"/api/entries", map[string]any{
		"date":       "2024-01-15",
		"scale":      6,
		"medication": []string{"ibuprofen"},
		"points":     map[string]any{"front": []map[string]float64{{"x": 0.2, "y": 0.3}}, "back": []any{}},
		"notes":      "woke up with it",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, decodeBody(t, resp))
	}
	entry, ok := decodeBody(t, resp)["entry"].(map[string]any)
	if !ok {
		t.Fatal("response missing 'entry'")
	}
	id, _ := entry["id"].(string)
	if id == "" {
		t.Fatal("expected a generated id")
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/api/entries/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody(t, resp)["entry"].(map[string]any)
	if got["notes"] != "woke up with it" || got["scale"] != 6.0 {
		t.Errorf("unexpected entry: %v", got)
	}
}

func TestCreateEntry_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"missing date", map[string]any{"scale": 3}},
		{"malformed date", map[string]any{"date": "15.01.2024", "scale": 3}},
		{"unknown field", map[string]any{"date": "2024-01-15", "severity": 3}},
		{"not json", "just a string"},
	}

	env := newTestServer(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, env.ts.URL+"/api/entries", tc.payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestPutEntry(t *testing.T) {
	env := newTestServer(t)
	env.seed(t, domain.HeadacheEntry{ID: "e1", Date: "2024-01-15", Scale: 2})

	resp := do(t, http.MethodPut, env.ts.URL+"/api/entries/e1", map[string]any{"date": "2024-01-16", "scale": 8})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	stored, _ := env.db.GetEntry(context.Background(), "e1")
	if stored == nil || stored.Date != "2024-01-16" || stored.Scale != 8 {
		t.Fatalf("stored = %#v", stored)
	}

	resp = do(t, http.MethodPut, env.ts.URL+"/api/entries/e1", map[string]any{"id": "other", "date": "2024-01-16"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatched id: expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteEntry(t *testing.T) {
	env := newTestServer(t)
	env.seed(t, domain.HeadacheEntry{ID: "e1", Date: "2024-01-15"})

	for _, id := range []string{"e1", "never-existed"} {
		resp := do(t, http.MethodDelete, env.ts.URL+"/api/entries/"+id, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delete %s: expected 200, got %d", id, resp.StatusCode)
		}
	}

	resp := do(t, http.MethodGet, env.ts.URL+"/api/entries/e1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestListEntries(t *testing.T) {
	env := newTestServer(t)
	env.seed(t,
		domain.HeadacheEntry{ID: "a", Date: "2024-01-01"},
		domain.HeadacheEntry{ID: "b", Date: "2024-01-15"},
		domain.HeadacheEntry{ID: "c", Date: "2024-02-01"},
	)

	tests := []struct {
		name    string
		query   string
		status  int
		wantIDs []string
	}{
		{"all", "", http.StatusOK, []string{"a", "b", "c"}},
		{"range", "?start=2024-01-01&end=2024-01-31", http.StatusOK, []string{"a", "b"}},
		{"inclusive bounds", "?start=2024-01-15&end=2024-02-01", http.StatusOK, []string{"b", "c"}},
		{"inverted", "?start=2024-02-01&end=2024-01-01", http.StatusOK, []string{}},
		{"missing end", "?start=2024-01-01", http.StatusBadRequest, nil},
		{"malformed", "?start=2024-1-1&end=2024-01-31", http.StatusBadRequest, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, env.ts.URL+"/api/entries"+tc.query, nil)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if tc.status != http.StatusOK {
				return
			}
			items, ok := decodeBody(t, resp)["items"].([]any)
			if !ok {
				t.Fatal("response missing 'items' array")
			}
			if len(items) != len(tc.wantIDs) {
				t.Fatalf("got %d items, want %d", len(items), len(tc.wantIDs))
			}
			for i, it := range items {
				if id := it.(map[string]any)["id"]; id != tc.wantIDs[i] {
					t.Errorf("items[%d].id = %v; want %s", i, id, tc.wantIDs[i])
				}
			}
		})
	}
}

func TestEntryByDate(t *testing.T) {
	env := newTestServer(t)
	env.seed(t,
		domain.HeadacheEntry{ID: "z", Date: "2024-03-10", Scale: 9},
		domain.HeadacheEntry{ID: "m", Date: "2024-03-10", Scale: 4},
	)

	resp := do(t, http.MethodGet, env.ts.URL+"/api/entries/by-date/2024-03-10", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if id := decodeBody(t, resp)["entry"].(map[string]any)["id"]; id != "m" {
		t.Errorf("expected lowest id m, got %v", id)
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/api/entries/by-date/2024-03-11", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/api/entries/by-date/yesterday", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestToday(t *testing.T) {
	env := newTestServer(t)
	today := domain.Today()
	env.seed(t, domain.HeadacheEntry{ID: "t", Date: today, Scale: 3})

	resp := do(t, http.MethodGet, env.ts.URL+"/api/today", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["today"] != today {
		t.Errorf("today = %v; want %s", body["today"], today)
	}
	if _, ok := body["entry"].(map[string]any); !ok {
		t.Errorf("expected today's entry, got %v", body["entry"])
	}
}

func TestCalendar(t *testing.T) {
	env := newTestServer(t)
	env.seed(t, domain.HeadacheEntry{ID: "x", Date: "2024-02-29", Scale: 5})

	resp := do(t, http.MethodGet, env.ts.URL+"/api/calendar?start=2024-02-28&days=3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	days, ok := decodeBody(t, resp)["days"].([]any)
	if !ok || len(days) != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
	leap := days[1].(map[string]any)
	if leap["day"] != "2024-02-29" || leap["color"] != "rgb(255, 215, 0)" {
		t.Errorf("leap day cell = %v", leap)
	}
	if days[0].(map[string]any)["scale"] != nil {
		t.Errorf("empty day should have null scale: %v", days[0])
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/api/calendar?start=02/28/2024", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPainColor(t *testing.T) {
	tests := []struct {
		query  string
		status int
		color  string
	}{
		{"?scale=0", http.StatusOK, "#90EE90"},
		{"?scale=5", http.StatusOK, "rgb(255, 215, 0)"},
		{"?scale=7.5", http.StatusOK, "rgb(252, 108, 30)"},
		{"?scale=10", http.StatusOK, "#DC143C"},
		{"?scale=abc", http.StatusBadRequest, ""},
		{"?scale=NaN", http.StatusBadRequest, ""},
		{"", http.StatusBadRequest, ""},
	}

	env := newTestServer(t)
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			resp := do(t, http.MethodGet, env.ts.URL+"/api/pain-color"+tc.query, nil)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if tc.status == http.StatusOK {
				if got := decodeBody(t, resp)["color"]; got != tc.color {
					t.Errorf("color = %v; want %s", got, tc.color)
				}
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"DELETE entries", http.MethodDelete, "/api/entries"},
		{"POST entry", http.MethodPost, "/api/entries/abc"},
		{"POST by-date", http.MethodPost, "/api/entries/by-date/2024-01-01"},
		{"PUT today", http.MethodPut, "/api/today"},
		{"POST calendar", http.MethodPost, "/api/calendar"},
		{"GET login", http.MethodGet, "/api/login"},
		{"GET logout", http.MethodGet, "/api/logout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, env.ts.URL+tc.path, nil)
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAuth_RequiresSession(t *testing.T) {
	env := newTestEnv(t, true)

	resp := do(t, http.MethodGet, env.ts.URL+"/api/entries", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health should stay public, got %d", resp.StatusCode)
	}
}

func TestAuth_SetupLoginLogout(t *testing.T) {
	env := newTestEnv(t, true)
	creds := map[string]string{"username": "anna", "password": "s3cret"}

	resp := do(t, http.MethodPost, env.ts.URL+"/api/setup", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("setup: expected 200, got %d", resp.StatusCode)
	}
	resp = do(t, http.MethodPost, env.ts.URL+"/api/setup", creds)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second setup: expected 409, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, env.ts.URL+"/api/login", map[string]string{"username": "anna", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, env.ts.URL+"/api/login", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("login did not set a session cookie")
	}

	withCookie := func(method, path string) *http.Response {
		req, _ := http.NewRequest(method, env.ts.URL+path, nil)
		req.AddCookie(session)
		r, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		t.Cleanup(func() { _ = r.Body.Close() })
		return r
	}

	resp = withCookie(http.MethodGet, "/api/me")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	user, _ := decodeBody(t, resp)["user"].(map[string]any)
	if user["username"] != "anna" {
		t.Errorf("me = %v", user)
	}

	resp = withCookie(http.MethodPost, "/api/logout")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	resp = withCookie(http.MethodGet, "/api/entries")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestAuth_ForwardAuthHeader(t *testing.T) {
	env := newTestEnv(t, true)

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/today", nil)
	req.Header.Set("Remote-User", "proxyuser")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with Remote-User, got %d", resp.StatusCode)
	}
}

func TestConfigAndSSODisabled(t *testing.T) {
	env := newTestEnv(t, true)

	resp := do(t, http.MethodGet, env.ts.URL+"/api/config", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["sso_enabled"] != false || body["auth_enabled"] != true {
		t.Errorf("config = %v", body)
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/api/auth/sso/login", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with SSO disabled, got %d", resp.StatusCode)
	}
}

func TestSPAFallback(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodGet, env.ts.URL+"/calendar/2024-01", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
