package handlers

import (
	"encoding/json"
	"net/http"
)

// Version is the build identifier, overridable at link time.
var Version = "0.1.0"

// HealthCheck returns a simple liveness handler
func HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}
}

// VersionHandler returns the service build identifier
func VersionHandler(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"version":     Version,
			"environment": environment,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
