package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	a := NewIssuer("secret", time.Hour)
	tok, err := a.Issue(42)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 42 || claims.Subject != "42" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := NewIssuer("other", time.Hour).Parse(tok); err == nil {
		t.Errorf("token accepted with a different key")
	}
}

func TestParse_Expired(t *testing.T) {
	a := NewIssuer("secret", time.Hour)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }
	tok, err := a.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	a.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := a.Parse(tok); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestMiddleware(t *testing.T) {
	a := NewIssuer("", 0)
	tok, err := a.Issue(7)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var seen int64
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + tok, http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && seen != 7 {
				t.Errorf("user id = %d, want 7", seen)
			}
		})
	}
}
