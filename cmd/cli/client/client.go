// Package client is the CLI's HTTP client for the Cinebrowse API.
package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crucial707/cinebrowse/cmd/cli/config"
	"github.com/goccy/go-json"
)

const sessionCookie = "session"

var httpClient = &http.Client{Timeout: 15 * time.Second}

// APIError is a non-2xx API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: status %d", e.Status)
	}
	return fmt.Sprintf("API error: %s (status %d)", e.Message, e.Status)
}

// Call sends payload (when non-nil) as JSON to the API and decodes the reply into out
// (when non-nil). session, when set, is sent as the session cookie. It returns the
// session cookie the API set on the response, if any.
func Call(method, path string, session string, payload, out interface{}) (string, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.APIURL()+path, body)
	if err != nil {
		return "", err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: session})
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return "", &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
	}

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie && c.MaxAge >= 0 {
			return c.Value, nil
		}
	}
	return "", nil
}
