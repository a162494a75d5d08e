package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestThemesEndpoint(t *testing.T) {
	router := NewRouter(newTestService(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/themes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Themes []string `json:"themes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Themes) != 1 || body.Themes[0] != "arrays" {
		t.Fatalf("unexpected themes %v", body.Themes)
	}
}

func TestLoginEndpoint(t *testing.T) {
	router := NewRouter(newTestService(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"   "}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected blank username to be rejected, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":" carol "}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var profile struct {
		Username string `json:"username"`
		History  []any  `json:"history"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.Username != "carol" || profile.History == nil {
		t.Fatalf("unexpected profile %+v", profile)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profiles/carol", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected profile lookup to succeed, got %d", rec.Code)
	}
}

func TestProfileLookupDoesNotCreate(t *testing.T) {
	service := newTestService()
	router := NewRouter(service, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profiles/dave", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown user, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profiles/dave", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("lookup must not create the profile, second lookup got %d", rec.Code)
	}
}
