package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOriginPolicyDecorate(t *testing.T) {
	policy := NewOriginPolicy([]string{"https://www.casavelle.com", "https://casavelle.com"})

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed origin echoed exactly", "https://www.casavelle.com", "https://www.casavelle.com"},
		{"second allowed origin", "https://casavelle.com", "https://casavelle.com"},
		{"unknown origin gets nothing", "https://evil.example", ""},
		{"no origin gets nothing", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(http.Header)
			policy.Decorate(h, tt.origin)

			if got := h.Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			wantCreds := ""
			if tt.wantOrigin != "" {
				wantCreds = "true"
			}
			if got := h.Get("Access-Control-Allow-Credentials"); got != wantCreds {
				t.Errorf("Allow-Credentials = %q, want %q", got, wantCreds)
			}
			// Methods, headers and max-age are attached regardless of match.
			if h.Get("Access-Control-Allow-Methods") == "" {
				t.Error("Allow-Methods should always be set")
			}
			if h.Get("Access-Control-Allow-Headers") == "" {
				t.Error("Allow-Headers should always be set")
			}
			if h.Get("Access-Control-Max-Age") == "" {
				t.Error("Max-Age should always be set")
			}
		})
	}
}

func TestSessionGuard(t *testing.T) {
	srv, handler := newTestServer(t)

	validToken, err := srv.tokens.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	expired, err := NewTokenIssuer(srv.cfg.SessionSecret, -time.Minute).Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	forged, err := NewTokenIssuer([]byte("fedcba9876543210fedcba9876543210"), time.Hour).Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name       string
		path       string
		cookie     string
		wantStatus int
	}{
		{"no cookie redirects", "/admin/dashboard", "", http.StatusFound},
		{"expired cookie redirects", "/admin/dashboard", expired, http.StatusFound},
		{"forged cookie redirects", "/admin/dashboard", forged, http.StatusFound},
		{"valid cookie proceeds", "/admin/dashboard", validToken, http.StatusOK},
		{"login page reachable without cookie", "/admin/login", "", http.StatusOK},
		{"login page reachable with bad cookie", "/admin/login", forged, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusFound {
				if loc := rec.Header().Get("Location"); loc != adminLoginPath {
					t.Errorf("redirect location = %q, want %q", loc, adminLoginPath)
				}
			}
		})
	}
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	_, handler := newTestServer(t)

	paths := []string{"/admin/login", "/admin/dashboard", "/api/v1/health"}
	for _, path := range paths {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		h := rec.Header()
		if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("%s: X-Content-Type-Options = %q", path, got)
		}
		if got := h.Get("X-Frame-Options"); got != "DENY" {
			t.Errorf("%s: X-Frame-Options = %q", path, got)
		}
		if h.Get("Referrer-Policy") == "" {
			t.Errorf("%s: Referrer-Policy missing", path)
		}
		if h.Get("Content-Security-Policy") == "" {
			t.Errorf("%s: Content-Security-Policy missing", path)
		}
	}
}

func TestPublicReadCORS(t *testing.T) {
	_, handler := newTestServer(t)

	// Allowed origin gets the echo.
	req := httptest.NewRequest("GET", "/api/v1/content", nil)
	req.Header.Set("Origin", "https://www.casavelle.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://www.casavelle.com" {
		t.Errorf("Allow-Origin = %q, want the matched origin", got)
	}

	// Unknown origin gets no allow header but the response body is still
	// delivered.
	req = httptest.NewRequest("GET", "/api/v1/content", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty for unknown origin", got)
	}
	if rec.Body.Len() == 0 {
		t.Error("response body should still be delivered")
	}
}

func TestRequireAdminShortCircuits(t *testing.T) {
	srv, handler := newTestServer(t)

	// No cookie.
	req := httptest.NewRequest("POST", "/api/v1/content", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body APIResponse
	decodeBody(t, rec, &body)
	if body.Success || body.Error == "" {
		t.Errorf("401 body = %+v, want {success:false, error:...}", body)
	}

	// Invalid cookie.
	forged, _ := NewTokenIssuer([]byte("fedcba9876543210fedcba9876543210"), time.Hour).Issue()
	req = httptest.NewRequest("DELETE", "/api/v1/leads/not-an-id", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: forged})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// The wrapped handler must never run: nothing was written to the store.
	entries, err := srv.content.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("content store should be untouched, has %d entries", len(entries))
	}
}

func TestPreflightAnsweredByGuard(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/content", nil)
	req.Header.Set("Origin", "https://www.casavelle.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Error("pre-flight response should have no body")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://www.casavelle.com" {
		t.Errorf("Allow-Origin = %q, want the matched origin", got)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("pre-flight should carry Allow-Methods")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{"remote addr only", "203.0.113.9:4711", "", "", "203.0.113.9"},
		{"x-forwarded-for wins", "10.0.0.1:80", "198.51.100.7, 10.0.0.1", "", "198.51.100.7"},
		{"x-real-ip fallback", "10.0.0.1:80", "", "198.51.100.8", "198.51.100.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
