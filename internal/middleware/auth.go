package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/listpal/listpal/internal/auth"
)

const bearerPrefix = "Bearer "

// RequireAuth verifies the Authorization bearer token and stores the
// resolved Subject on the request context.
func RequireAuth(provider *auth.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
				token = strings.TrimPrefix(h, bearerPrefix)
			}

			sub, err := provider.Verify(token)
			if err != nil {
				msg := "invalid token"
				switch {
				case errors.Is(err, auth.ErrMissingToken):
					msg = "missing token"
				case errors.Is(err, auth.ErrExpiredToken):
					msg = "expired token"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": msg})
				return
			}

			ctx := auth.WithSubject(r.Context(), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
