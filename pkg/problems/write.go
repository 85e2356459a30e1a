package problems

import (
	"encoding/json"
	"net/http"
)

// Write renders err as application/problem+json.
func Write(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	status := Status(code)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   Type(code),
		"title":  http.StatusText(status),
		"status": status,
		"detail": MessageOf(err),
	})
}

// WriteOAuth renders err in the OAuth2 error response shape used by the
// token and authorize endpoints.
func WriteOAuth(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	status := Status(code)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":             code,
		"error_description": MessageOf(err),
	})
}
