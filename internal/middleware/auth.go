package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/logging"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// AccessCookieName is the cookie carrying the access token.
const AccessCookieName = "cliptube_access"

// AccessVerifier validates an access token and returns the owning user id.
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// RequireAuth guards a handler with access-token verification. The token is
// read from the Authorization bearer header first, then the access cookie.
// On success the authenticated user id is stored on the request context.
func RequireAuth(verifier AccessVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(AccessCookieName); err == nil {
				token = cookie.Value
			}
		}

		if token == "" {
			unauthorized(w, "authentication required")
			return
		}

		userID, err := verifier.VerifyAccess(token)
		if err != nil {
			logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// UserIDFromContext retrieves the authenticated user id set by RequireAuth.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
