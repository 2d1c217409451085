package errors

import (
	"encoding/json"
	"net/http"
)

// APIError is the error body every rejected request receives. Message is safe
// for clients; internal detail stays in server logs.
type APIError struct {
	Message string `json:"message"`
}

type RateLimitError struct {
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
