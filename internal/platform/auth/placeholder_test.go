package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newPlaceholderServer(logs *bytes.Buffer) *echo.Echo {
	e := echo.New()
	h := NewPlaceholderHandler(zerolog.New(logs))
	h.RegisterRoutes(e.Group("/api/auth"))
	e.GET("/", BannerHandler)
	return e
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLogin_AcceptsAnyCredentials(t *testing.T) {
	bodies := []string{
		`{"email":"ana@clinica.test","password":"correct horse"}`,
		`{"email":"nobody@nowhere.test","password":"wrong"}`,
		`{"email":"","password":""}`,
		`{}`,
		``,
	}
	for _, body := range bodies {
		rec := post(newPlaceholderServer(&bytes.Buffer{}), "/api/auth/login", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("body %q: expected 200, got %d", body, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp["token"] != SimulatedToken {
			t.Errorf("body %q: expected simulated token, got %q", body, resp["token"])
		}
		if resp["message"] == "" {
			t.Error("expected a message")
		}
	}
}

func TestRegister_AlwaysCreated(t *testing.T) {
	var logs bytes.Buffer
	e := newPlaceholderServer(&logs)
	rec := post(e, "/api/auth/register", `{"email":"ana@clinica.test","password":"s3cret!","fullName":"Ana Souza","role":"psicologo"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "simulação") {
		t.Errorf("expected simulated message, got %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "ana@clinica.test") {
		t.Error("expected request to be logged")
	}
	if strings.Contains(logs.String(), "s3cret!") {
		t.Error("password must never be logged")
	}
}

func TestPlaceholder_MalformedBody(t *testing.T) {
	tests := []struct {
		path    string
		message string
	}{
		{"/api/auth/login", "Erro ao fazer login"},
		{"/api/auth/register", "Erro ao registrar usuário"},
	}
	for _, tt := range tests {
		rec := post(newPlaceholderServer(&bytes.Buffer{}), tt.path, `{"email":`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", tt.path, rec.Code)
		}
		var resp map[string]string
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["message"] != tt.message || resp["error"] == "" {
			t.Errorf("%s: unexpected body %v", tt.path, resp)
		}
	}
}

func TestBanner(t *testing.T) {
	e := newPlaceholderServer(&bytes.Buffer{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != Banner {
		t.Errorf("unexpected banner response %d %q", rec.Code, rec.Body.String())
	}
}
