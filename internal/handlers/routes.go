package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// Dependencies carries the collaborators required to build the HTTP surface.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Media         MediaRelay
	Verifier      middleware.AccessVerifier
	AuthLimiter   RateLimiter
}

// RegisterRoutes attaches every API endpoint to the supplied mux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	authHandler := AuthHandler{
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Media:    deps.Media,
		Limiter:  deps.AuthLimiter,
	}
	profileHandler := ProfileHandler{
		Users:         deps.Users,
		Media:         deps.Media,
		Subscriptions: deps.Subscriptions,
	}
	videoHandler := VideoHandler{
		Videos: deps.Videos,
		Media:  deps.Media,
	}
	subscriptionHandler := SubscriptionHandler{
		Users:         deps.Users,
		Subscriptions: deps.Subscriptions,
	}

	requireAuth := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAuth(deps.Verifier, next)
	}

	mux.HandleFunc("/healthz", HealthHandler{}.Handle)

	mux.HandleFunc("/api/v1/auth/register", methodOnly(http.MethodPost, authHandler.Register))
	mux.HandleFunc("/api/v1/auth/login", methodOnly(http.MethodPost, authHandler.Login))
	mux.HandleFunc("/api/v1/auth/refresh", methodOnly(http.MethodPost, authHandler.Refresh))
	mux.HandleFunc("/api/v1/auth/logout", requireAuth(methodOnly(http.MethodPost, authHandler.Logout)))
	mux.HandleFunc("/api/v1/auth/password", requireAuth(methodOnly(http.MethodPost, authHandler.ChangePassword)))

	mux.HandleFunc("/api/v1/users/me", requireAuth(profileHandler.Me))
	mux.HandleFunc("/api/v1/users/me/avatar", requireAuth(profileHandler.UpdateAvatar))
	mux.HandleFunc("/api/v1/users/me/cover", requireAuth(profileHandler.UpdateCover))
	mux.HandleFunc("/api/v1/users/", profileHandler.Channel)

	mux.HandleFunc("/api/v1/videos", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			videoHandler.List(w, r)
		case http.MethodPost:
			requireAuth(videoHandler.Publish)(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/videos/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			videoHandler.Get(w, r)
		case http.MethodPatch:
			requireAuth(videoHandler.Update)(w, r)
		case http.MethodDelete:
			requireAuth(videoHandler.Delete)(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/subscriptions", requireAuth(subscriptionHandler.ListSubscriptions))
	mux.HandleFunc("/api/v1/subscriptions/", requireAuth(subscriptionHandler.Toggle))
	mux.HandleFunc("/api/v1/subscribers", requireAuth(subscriptionHandler.ListSubscribers))
}

func methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
