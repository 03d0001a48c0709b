package handlers

import (
	"net/http"
	"time"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Health handles GET /api/health.
func Health(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":      "ok",
			"timestamp":   time.Now().UTC().Format(isoMillis),
			"environment": environment,
		})
	}
}
