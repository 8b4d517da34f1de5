package api

import (
	"encoding/json"
	"net/http"
)

// failureBody is the structured failure shape every handler error maps to.
// Internal detail never leaks into it.
type failureBody struct {
	Success bool   `json:"success"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureBody{Success: false, Error: true, Message: message})
}
