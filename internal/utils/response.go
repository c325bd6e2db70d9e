package utils

import (
	"encoding/json"
	"net/http"

	"github.com/campushire/ranking-backend/internal/logger"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// Success responds 200 with the data wrapped in the API envelope.
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// Error responds with a message and logs the underlying error.
func Error(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		logger.Error("[%d] %s: %v", status, message, err)
	} else {
		logger.Error("[%d] %s", status, message)
	}
	JSON(w, status, APIResponse{Success: false, Error: message})
}

// ErrorSimple responds with a message without logging an underlying error.
func ErrorSimple(w http.ResponseWriter, status int, message string) {
	JSON(w, status, APIResponse{Success: false, Error: message})
}

// Message responds 200 with a plain message.
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, APIResponse{Success: true, Message: msg})
}

// Accepted responds 202 with a plain message, for fire-and-forget operations.
func Accepted(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusAccepted, APIResponse{Success: true, Message: msg})
}
