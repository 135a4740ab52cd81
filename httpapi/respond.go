package httpapi

import (
	"encoding/json"
	"net/http"
)

// Envelope is the JSON body of every auth response.
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type apiError struct {
	status  int
	code    string
	message string
}

var (
	errBadRequest      = apiError{http.StatusBadRequest, "E400", "invalid request"}
	errUnknownProvider = apiError{http.StatusBadRequest, "E400", "unsupported provider"}
	errInvalidToken    = apiError{http.StatusUnauthorized, "E401", "invalid token"}
	errLoginFailed     = apiError{http.StatusUnauthorized, "E401", "invalid email or password"}
	errRateLimited     = apiError{http.StatusTooManyRequests, "E429", "too many requests"}
	errInternal        = apiError{http.StatusInternalServerError, "E500", "internal server error"}
	errUnavailable     = apiError{http.StatusServiceUnavailable, "E503", "service unavailable"}
)

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: "S200", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, e apiError) {
	if e.status == http.StatusUnauthorized && e.message == errInvalidToken.message {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	writeJSON(w, e.status, Envelope{Code: e.code, Message: e.message})
}
