package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"arkwarden/internal/domain"
	"arkwarden/internal/lifecycle"
	"arkwarden/internal/storage"
	"arkwarden/internal/ws"
)

// defaultStatsWindow applies when the stats request carries no since.
const defaultStatsWindow = 24 * time.Hour

func (api *Server) writeStartError(w http.ResponseWriter, id string, err error) {
	if !errors.Is(err, domain.ErrDriftDetected) {
		writeError(w, err)
		return
	}
	resp := struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}{Error: err.Error()}
	if ps, ok := api.Lifecycle.Pending(id); ok {
		resp.Fields = ps.Fields
	}
	writeJSON(w, http.StatusConflict, resp)
}

func (api *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := api.Lifecycle.Start(r.Context(), id); err != nil {
		api.writeStartError(w, id, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "starting"})
}

func (api *Server) handleResolveStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Choice   lifecycle.DriftChoice `json:"choice"`
		Remember bool                  `json:"remember"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	switch req.Choice {
	case lifecycle.ChoiceSaveAppConfig, lifecycle.ChoiceLoadDisk, lifecycle.ChoiceCancel:
	default:
		http.Error(w, "unknown choice", http.StatusBadRequest)
		return
	}

	if err := api.Lifecycle.ResolvePendingStart(r.Context(), id, req.Choice, req.Remember); err != nil {
		api.writeStartError(w, id, err)
		return
	}
	if req.Choice == lifecycle.ChoiceCancel {
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "starting"})
}

func (api *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := api.Lifecycle.Stop(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (api *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := api.Lifecycle.Restart(r.Context(), r.PathValue("id"), false); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

func (api *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := api.Lifecycle.Update(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "updating"})
}

func (api *Server) handleCheckUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := api.Lifecycle.CheckForUpdate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		domain.Profile
		UpdateAvailable bool `json:"updateAvailable"`
	}{p, p.UpdateAvailable()})
}

func (api *Server) handleArmTimed(w http.ResponseWriter, r *http.Request) {
	kind := domain.TimedOperationKind(r.PathValue("kind"))
	if kind != domain.TimedShutdown && kind != domain.TimedRestart {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Minutes int    `json:"minutes"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	op, err := api.Countdowns.Arm(r.Context(), r.PathValue("id"), kind, req.Minutes, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, op)
}

func (api *Server) handleGetTimed(w http.ResponseWriter, r *http.Request) {
	op, ok := api.Countdowns.Active(r.PathValue("id"))
	if !ok {
		writeError(w, domain.ErrNoTimedOperation)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (api *Server) handleCancelTimed(w http.ResponseWriter, r *http.Request) {
	if err := api.Countdowns.Cancel(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		http.Error(w, "command is required", http.StatusBadRequest)
		return
	}

	entry, err := api.Commands.Send(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Command))
	if err != nil {
		if statusFor(err) != http.StatusInternalServerError {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, entry)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (api *Server) handleCommandLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := api.Profiles.Get(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Commands.Log(id))
}

func (api *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := api.Profiles.Get(id); err != nil {
		writeError(w, err)
		return
	}
	api.Selector.Select(id)
	if err := api.Store.SetSetting(storage.SettingActiveProfile, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := api.Profiles.Get(id); err != nil {
		writeError(w, err)
		return
	}

	since := time.Now().Add(-defaultStatsWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "since must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		since = t
	}

	samples, err := api.Store.ListStatsSamples(id, since)
	if err != nil {
		writeError(w, err)
		return
	}
	if samples == nil {
		samples = []domain.StatsSample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (api *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	channel := ws.Channel(r.PathValue("channel"))
	if !channel.Valid() {
		http.Error(w, "unknown log channel", http.StatusBadRequest)
		return
	}
	if _, err := api.Profiles.Get(id); err != nil {
		writeError(w, err)
		return
	}

	hub := api.HubManager.GetHub(id, channel)
	hub.ServeWs(w, r)
}
