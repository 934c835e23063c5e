package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ayush/promptopia/backend/internal/auth"
)

// RequireAuth validates the session evidence (cookie or bearer token) and
// injects the user_id into the request context. Missing, malformed and
// expired evidence all produce the same 401.
func RequireAuth(tokens auth.TokenStrategy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolve(tokens, r)
			if !ok {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects user_id when valid evidence is present and passes
// the request through untouched otherwise. Used by endpoints that answer
// differently for anonymous callers instead of rejecting them.
func OptionalAuth(tokens auth.TokenStrategy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := resolve(tokens, r); ok {
				r = r.WithContext(context.WithValue(r.Context(), "user_id", userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolve(tokens auth.TokenStrategy, r *http.Request) (string, bool) {
	evidence := ""
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		evidence = cookie.Value
	} else if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		evidence = strings.TrimPrefix(header, "Bearer ")
	}
	if evidence == "" {
		return "", false
	}
	userID, err := tokens.Resolve(evidence)
	if err != nil {
		return "", false
	}
	return userID, true
}
