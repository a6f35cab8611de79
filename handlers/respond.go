package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, data any, count int) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data, Count: &count})
}

func writeError(w http.ResponseWriter, status int, errLabel, message string) {
	writeJSON(w, status, Response{Success: false, Error: errLabel, Message: message})
}

// serverError logs the real error and hides it from the client
// unless the server runs in development mode.
func serverError(w http.ResponseWriter, dev bool, errLabel string, err error) {
	log.Printf("%s: %v", errLabel, err)
	message := "Something went wrong"
	if dev {
		message = err.Error()
	}
	writeError(w, http.StatusInternalServerError, errLabel, message)
}
