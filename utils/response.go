package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"famportal/apperr"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Paged wraps a list response.
type Paged struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func OK(w http.ResponseWriter, msg string, data interface{}) {
	WriteJSON(w, http.StatusOK, APIResponse{Success: true, Message: msg, Data: data})
}

// WriteError maps err to a status and envelope. Internal errors are logged
// with the request id and hidden behind a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	msg := apperr.Message(err)
	if status == http.StatusInternalServerError {
		slog.Default().ErrorContext(r.Context(), "request failed",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err)
		msg = "Internal server error"
	}
	WriteJSON(w, status, APIResponse{Success: false, Message: msg})
}
