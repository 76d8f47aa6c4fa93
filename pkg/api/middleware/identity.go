// Package middleware carries the request identity through the handler
// chain.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hashbeam/cidhub/pkg/api/auth"
	"github.com/hashbeam/cidhub/pkg/models"
)

type contextKey string

const userKey contextKey = "cidhub.user"

// Identity resolves the requesting user from a Bearer token. Requests
// without a token act as the anonymous user; a present but invalid token
// is rejected.
func Identity(tokens *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := models.AnonymousUserID

			header := r.Header.Get("Authorization")
			if header != "" && tokens != nil {
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					http.Error(w, "malformed authorization header", http.StatusUnauthorized)
					return
				}
				claims, err := tokens.Validate(token)
				if err != nil {
					http.Error(w, "invalid session token", http.StatusUnauthorized)
					return
				}
				userID = claims.UserID
			}

			ctx := context.WithValue(r.Context(), userKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the user resolved by Identity, or the anonymous user.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userKey).(string); ok && id != "" {
		return id
	}
	return models.AnonymousUserID
}

// UserFromRequest adapts UserID to the resolution pipeline's callback.
func UserFromRequest(r *http.Request) string {
	return UserID(r.Context())
}
