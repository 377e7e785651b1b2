package response

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Envelope — единый формат ответа API
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logrus.Errorf("failed to write response: %v", err)
	}
}

func OK(w http.ResponseWriter, message string, data interface{}) {
	write(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	write(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: false, Message: message})
}

func ErrorWithData(w http.ResponseWriter, status int, message string, data interface{}) {
	write(w, status, Envelope{Success: false, Message: message, Data: data})
}
