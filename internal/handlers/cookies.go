package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
)

// RefreshCookieName is the cookie carrying the refresh token. The access
// cookie name lives in the middleware package, which reads it for auth.
const RefreshCookieName = "cliptube_refresh"

func setAuthCookies(w http.ResponseWriter, r *http.Request, tokens models.SessionTokens) {
	secure := isSecureRequest(r)
	setTokenCookie(w, middleware.AccessCookieName, tokens.AccessToken, tokens.AccessExpiresAt, secure)
	setTokenCookie(w, RefreshCookieName, tokens.RefreshToken, tokens.RefreshExpiresAt, secure)
}

func clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	secure := isSecureRequest(r)
	expireCookie(w, middleware.AccessCookieName, secure)
	expireCookie(w, RefreshCookieName, secure)
}

func setTokenCookie(w http.ResponseWriter, name, value string, expires time.Time, secure bool) {
	if value == "" {
		return
	}
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func expireCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	return false
}
