package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"arkwarden/internal/domain"
)

func (api *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrAlreadyRunning),
		errors.Is(err, domain.ErrDriftDetected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotInstalled),
		errors.Is(err, domain.ErrNotRunning),
		errors.Is(err, domain.ErrRemoteConsoleDisabled),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrNoTimedOperation),
		errors.Is(err, domain.ErrNoPendingStart),
		errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
