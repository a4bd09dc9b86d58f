package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/crucial707/cinebrowse/internal/auth"
	"github.com/crucial707/cinebrowse/internal/models"
	"github.com/goccy/go-json"
)

// apiClient talks to cmd/api, forwarding the browser's session cookie.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// apiResult is a decoded-enough API response: status, raw body and the session cookie if one was set.
type apiResult struct {
	status  int
	body    []byte
	session *http.Cookie
}

// errorMessage returns the API's {"error": "..."} message, or a generic one.
func (res *apiResult) errorMessage() string {
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(res.body, &out); err == nil && out.Error != "" {
		return out.Error
	}
	return fmt.Sprintf("Unexpected response from API (%d)", res.status)
}

// do calls the API. clientIP, when set, is forwarded so the API's per-IP
// limits and activity log see the browser's address rather than this server's.
func (c *apiClient) do(ctx context.Context, method, path string, payload interface{}, session, clientIP string) (*apiResult, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: session})
	}
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
		req.Header.Set("X-Real-IP", clientIP)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	res := &apiResult{status: resp.StatusCode, body: data}
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.CookieName {
			res.session = ck
		}
	}
	return res, nil
}

// me resolves the session to its user. A nil user with a nil error means the session was rejected.
func (c *apiClient) me(ctx context.Context, session, clientIP string) (*models.User, error) {
	res, err := c.do(ctx, http.MethodGet, "/auth/me", nil, session, clientIP)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	switch res.status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("session lookup: %s", res.errorMessage())
	}

	var out struct {
		User models.User `json:"user"`
	}
	if err := json.Unmarshal(res.body, &out); err != nil {
		return nil, fmt.Errorf("session lookup: decode: %w", err)
	}
	return &out.User, nil
}

// browserIP returns the caller's address without port. chi's RealIP has
// already applied proxy headers to RemoteAddr.
func browserIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
