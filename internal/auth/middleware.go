package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// ctxUserKey is unexported so only this package can install the
// authenticated user id on a request context.
type ctxUserKey struct{}

// AuthMiddleware guards a router subtree: every request must carry a
// valid bearer token, and the authenticated user id is made available
// via UserIDFromContext.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			fail(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := s.ValidateToken(token)
		if err != nil {
			slog.Debug("token rejected", "path", r.URL.Path, "error", err)
			fail(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the credentials from the Authorization header.
// The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserIDFromContext returns the authenticated user id, or "" outside
// the middleware.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(ctxUserKey{}).(string)
	return userID
}
