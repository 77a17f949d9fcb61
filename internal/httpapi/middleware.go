package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/bobby4fischer/pettrack/internal/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// requireAuth resolves the caller from a verified bearer token. API routes
// never fall back to unverified decoding; that leniency is the live
// channel's alone.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			return
		}
		userID, err := auth.VerifyToken(s.app.Config.JWTSecret, token)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
