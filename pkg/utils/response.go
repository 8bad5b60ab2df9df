package utils

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes payload as a JSON response. The returned error only reports
// encoding or write failures; the status line has already been sent by then.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, status int, message string) error {
	return RespondJSON(w, status, map[string]string{"error": message})
}
