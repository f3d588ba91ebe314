package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	UserHeader  = "X-User-ID"
	DefaultUser = "local"
)

type userKey struct{}

// User scopes the request to the caller named in X-User-ID. The header is
// trusted as is.
func User(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			id = DefaultUser
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

// UserID returns the caller set by User, or DefaultUser.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultUser
}
