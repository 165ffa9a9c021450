package postgrest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/blua/laudos/internal/platform/auth"
)

// APIError is a non-2xx answer from the store.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("store: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("store: %d: %s", e.Status, msg)
}

// sessionTransport sits below the postgrest-go transport. It authorizes
// each request with the session's access token (the API key without one)
// and turns non-2xx answers into *APIError before the body is parsed.
type sessionTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := auth.AccessToken(req.Context())
	if token == "" {
		token = t.apiKey
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return nil, apiErr
}
