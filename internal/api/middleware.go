package api

import (
	"context"
	"net/http"
	"strings"

	"rescuegrid/internal/auth"
)

type contextKey string

const userContextKey contextKey = "user"

// requireAuth resolves the bearer token and stores the user in the
// request context. No token, no route.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			_ = writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		user, err := s.gate.Resolve(r.Context(), token)
		if err != nil {
			_ = writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func userFrom(r *http.Request) *auth.User {
	user, _ := r.Context().Value(userContextKey).(*auth.User)
	return user
}
