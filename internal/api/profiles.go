package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"arkwarden/internal/domain"
	"arkwarden/internal/storage"

	"go.uber.org/zap"
)

func (api *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Profiles.List())
}

func (api *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := api.Profiles.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (api *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"profileName"`
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	p, err := api.Profiles.Create(req.Name, strings.TrimSpace(req.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	if p.Installed() {
		if verified, err := api.Lifecycle.Verify(r.Context(), p.ID); err == nil {
			p = verified
		}
	}
	writeJSON(w, http.StatusCreated, p)
}

func (api *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Name *string `json:"profileName"`
		Path *string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	p, err := api.Profiles.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Path != nil && strings.TrimSpace(*req.Path) != p.InstallPath {
		if p, err = api.Lifecycle.Relocate(r.Context(), id, *req.Path); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		p, err = api.Profiles.Update(id, func(p *domain.Profile) error {
			p.Name = strings.TrimSpace(*req.Name)
			return nil
		})
		if err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (api *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.ServerConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := api.Profiles.Update(r.PathValue("id"), func(p *domain.Profile) error {
		p.Config = cfg
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (api *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := api.Profiles.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if p.Status.Busy() || p.Status == domain.StatusRunning {
		writeError(w, domain.ErrBusy)
		return
	}

	if err := api.Profiles.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	if api.Selector != nil && api.Selector.Selected() == id {
		api.Selector.Select("")
		if err := api.Store.SetSetting(storage.SettingActiveProfile, ""); err != nil {
			api.Logger.Warn("could not clear active profile", zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
