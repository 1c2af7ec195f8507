package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/listpal/listpal/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	provider := auth.NewProvider([]byte("test-secret"), time.Hour)

	var gotUsername string
	handler := RequireAuth(provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUsername = auth.Username(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token, err := provider.Issue("alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUsername != "alice" {
		t.Errorf("subject = %q, want %q", gotUsername, "alice")
	}
}

func TestRequireAuthRejections(t *testing.T) {
	provider := auth.NewProvider([]byte("test-secret"), time.Hour)
	expired := auth.NewProvider([]byte("test-secret"), -time.Minute)
	other := auth.NewProvider([]byte("other-secret"), time.Hour)

	handler := RequireAuth(provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	expiredToken, _ := expired.Issue("alice")
	foreignToken, _ := other.Issue("alice")

	cases := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no header", "", "missing token"},
		{"not bearer", "Basic abc", "missing token"},
		{"expired", "Bearer " + expiredToken, "expired token"},
		{"wrong secret", "Bearer " + foreignToken, "invalid token"},
		{"garbage", "Bearer nonsense", "invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tc.wantMsg {
				t.Errorf("error = %q, want %q", body["error"], tc.wantMsg)
			}
		})
	}
}
