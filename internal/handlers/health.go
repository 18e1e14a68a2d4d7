package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthHandler answers liveness probes for the cliptube API.
type HealthHandler struct{}

// Handle implements GET /healthz. It reports process liveness only; database
// and media-store reachability are not checked here.
func (HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload := map[string]string{
		"service": "cliptube",
		"status":  "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
