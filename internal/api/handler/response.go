package handler

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

// ErrorResponse is the JSON error body. VideoID names the offending
// identifier, Suggestion is actionable advice for the client, and Detail
// carries diagnostic text outside production.
type ErrorResponse struct {
	Error      string `json:"error"`
	VideoID    string `json:"videoId,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func Error(w http.ResponseWriter, status int, resp ErrorResponse) {
	JSON(w, status, resp)
}
