package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/cinebrowse/internal/auth"
	"github.com/crucial707/cinebrowse/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() config.Config {
	return config.Config{
		SessionSecret:  "test-secret-for-integration",
		SessionTTL:     time.Hour,
		CatalogBaseURL: "http://catalog.invalid",
		CatalogTimeout: time.Second,
	}
}

func postJSON(t *testing.T, client *http.Client, url string, v interface{}, cookie *http.Cookie) *http.Response {
	t.Helper()
	body, _ := json.Marshal(v)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getWithCookie(t *testing.T, client *http.Client, url string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func findSessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

// TestAPI_SignupLoginMeLogout walks the whole account flow through the real
// router with a sqlmock-backed DB.
func TestAPI_SignupLoginMeLogout(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now()

	// Signup: conflict pre-check, insert, activity.
	mock.ExpectQuery(`WHERE username = \$1 OR email = \$2 OR external_id = \$3`).
		WithArgs("alice", "a@x.com", "K1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "external_id"}))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", sqlmock.AnyArg(), "K1", "a@x.com", "555", "Alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	mock.ExpectExec(`INSERT INTO auth_events`).
		WithArgs(1, "signup", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Repeat signup: pre-check finds alice.
	mock.ExpectQuery(`WHERE username = \$1 OR email = \$2 OR external_id = \$3`).
		WithArgs("alice", "a@x.com", "K1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "external_id"}).
			AddRow(1, "alice", "a@x.com", "K1"))

	// Login with the right password.
	mock.ExpectQuery(`SELECT id, username, password`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "external_id", "email", "mobile", "name", "created_at"}).
			AddRow(1, "alice", string(hash), "K1", "a@x.com", "555", "Alice", now))
	mock.ExpectExec(`INSERT INTO auth_events`).
		WithArgs(1, "login", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	// Me.
	mock.ExpectQuery(`SELECT id, username, name, email, external_id, mobile, created_at`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "email", "external_id", "mobile", "created_at"}).
			AddRow(1, "alice", "Alice", "a@x.com", "K1", "555", now))

	// Logout.
	mock.ExpectExec(`INSERT INTO auth_events`).
		WithArgs(1, "logout", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()
	client := srv.Client()

	alice := map[string]string{
		"username": "alice", "password": "secret1", "externalId": "K1",
		"email": "a@x.com", "mobile": "555", "name": "Alice",
	}

	// 1) Signup
	resp := postJSON(t, client, srv.URL+"/auth/signup", alice, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status: got %d, want 201", resp.StatusCode)
	}
	if findSessionCookie(resp) == nil {
		t.Fatal("signup did not set a session cookie")
	}

	// 2) Repeat signup
	resp = postJSON(t, client, srv.URL+"/auth/signup", alice, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat signup status: got %d, want 409", resp.StatusCode)
	}

	// 3) Login
	resp = postJSON(t, client, srv.URL+"/auth/login", map[string]string{"username": "alice", "password": "secret1"}, nil)
	var loginOut struct {
		User struct {
			ID int `json:"id"`
		} `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&loginOut)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || loginOut.User.ID != 1 {
		t.Fatalf("login: status %d, user %+v", resp.StatusCode, loginOut.User)
	}
	cookie := findSessionCookie(resp)
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("login cookie: %+v", cookie)
	}

	// 4) Me
	resp = getWithCookie(t, client, srv.URL+"/auth/me", cookie)
	var meBody bytes.Buffer
	meBody.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status: got %d, want 200", resp.StatusCode)
	}
	if strings.Contains(meBody.String(), "password") {
		t.Errorf("me leaks password: %s", meBody.String())
	}

	// 5) Logout
	resp = postJSON(t, client, srv.URL+"/auth/logout", nil, cookie)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status: got %d, want 200", resp.StatusCode)
	}
	if c := findSessionCookie(resp); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout should expire the cookie, got %+v", c)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_LoginRateLimited(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()

	// Missing fields never reach the DB, so only the limiter decides the status.
	last := 0
	for i := 0; i < 6; i++ {
		resp := postJSON(t, srv.Client(), srv.URL+"/auth/login", map[string]string{}, nil)
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("6th login status: got %d, want 429", last)
	}
}

// Logins relayed by the web server carry the browser address, so each browser
// gets its own bucket.
func TestAPI_LoginRateLimitPerForwardedIP(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()

	login := func(ip string) int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/auth/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", ip)
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("login request: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < 5; i++ {
		if got := login("203.0.113.7"); got != http.StatusBadRequest {
			t.Fatalf("login %d from first browser: got %d, want 400", i, got)
		}
	}
	if got := login("203.0.113.7"); got != http.StatusTooManyRequests {
		t.Errorf("6th login from first browser: got %d, want 429", got)
	}
	if got := login("198.51.100.9"); got != http.StatusBadRequest {
		t.Errorf("first login from second browser: got %d, want 400", got)
	}
}

func TestAPI_CatalogRequiresSession(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()

	resp := getWithCookie(t, srv.Client(), srv.URL+"/catalog/trending", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /catalog/trending status: got %d, want 401", resp.StatusCode)
	}
}

func TestAPI_CatalogWithSession(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"results":[{"id":7,"title":"Heat"}]}`))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.CatalogBaseURL = upstream.URL
	cfg.CatalogAPIKey = "k"
	srv := httptest.NewServer(newRouter(db, cfg))
	defer srv.Close()

	sessions := auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL)
	token, _ := sessions.Issue(1, "alice")

	resp := getWithCookie(t, srv.Client(), srv.URL+"/catalog/trending", &http.Cookie{Name: auth.CookieName, Value: token})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /catalog/trending status: got %d, want 200", resp.StatusCode)
	}
	var out struct {
		Results []struct {
			Title string `json:"title"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || len(out.Results) != 1 || out.Results[0].Title != "Heat" {
		t.Errorf("unexpected catalog body: %+v (%v)", out, err)
	}
}

// TestAPI_Health is a quick smoke test for the health endpoint.
func TestAPI_Health(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status: got %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

// TestAPI_Ready checks that /ready pings the DB and returns 200 when DB is reachable.
func TestAPI_Ready(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ready status: got %d, want 200", resp.StatusCode)
	}
}

func TestAPI_ReadyDBDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /ready status: got %d, want 503", resp.StatusCode)
	}
}

func TestAPI_Metrics(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	srv := httptest.NewServer(newRouter(db, testConfig()))
	defer srv.Close()

	if resp, err := http.Get(srv.URL + "/health"); err == nil {
		resp.Body.Close()
	}
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if !strings.Contains(body.String(), "http_requests_total") {
		t.Error("expected http_requests_total in /metrics output")
	}
}
