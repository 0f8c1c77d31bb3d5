// Package handlers provides the HTTP handlers and middleware for the
// blueprint analysis API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope for every non-streaming response.
type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, status int, payload APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, APIResponse{Code: status, Message: message, Data: nil})
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, APIResponse{Code: http.StatusOK, Message: "ok", Data: data})
}
