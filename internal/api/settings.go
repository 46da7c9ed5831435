package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"arkwarden/internal/domain"
)

func (api *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Settings.Get())
}

func (api *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NotificationsEnabled *bool `json:"notificationsEnabled"`
		AutoSaveOnStart      *bool `json:"autoSaveOnStart"`
		StartWithSystem      *bool `json:"startWithWindows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if req.StartWithSystem != nil && *req.StartWithSystem != api.Settings.Get().StartWithSystem && api.Autostart != nil {
		if err := api.Autostart.Apply(*req.StartWithSystem); err != nil {
			writeError(w, fmt.Errorf("error updating autostart: %w", err))
			return
		}
	}

	settings, err := api.Settings.Update(func(a *domain.AppSettings) {
		if req.NotificationsEnabled != nil {
			a.NotificationsEnabled = *req.NotificationsEnabled
		}
		if req.AutoSaveOnStart != nil {
			a.AutoSaveOnStart = *req.AutoSaveOnStart
		}
		if req.StartWithSystem != nil {
			a.StartWithSystem = *req.StartWithSystem
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (api *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list := api.Notifications.List()
	if list == nil {
		list = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (api *Server) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	api.Notifications.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	api.Notifications.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleAppUpdate(w http.ResponseWriter, r *http.Request) {
	info, err := api.Updates.CheckForUpdates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
