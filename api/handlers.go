package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/CreativeUnicorns/morestickers"
	"github.com/CreativeUnicorns/morestickers/i18n"
)

const maxBodyBytes = 1024 * 1024

type preferenceResponse struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	Found bool        `json:"found"`
}

type setPreferenceRequest struct {
	Value json.RawMessage `json:"value"`
}

type updateSettingsRequest struct {
	Region   *string `json:"region"`
	NoResize *bool   `json:"noResize"`
}

func (s *Server) handleDefinePreference(w http.ResponseWriter, r *http.Request) {
	var def morestickers.PreferenceDefinition
	if !s.decode(w, r, &def) {
		return
	}

	if err := s.store.Define(def); err != nil {
		s.respondWithStoreError(w, r, "Invalid preference definition", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusCreated, def)
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	def, found := s.store.Definition(key)
	if !found {
		s.respondWithError(w, r, http.StatusNotFound, "Preference definition not found", nil)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, def)
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, s.store.Definitions())
}

func (s *Server) handleGetAllPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.All(r.Context())
	if err != nil {
		s.respondWithStoreError(w, r, "Failed to get preferences", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, prefs)
}

// handleGetPreference answers 200 for absent keys with found=false and the
// definition default, if any, as value.
func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, found, err := s.store.Get(r.Context(), key)
	if err != nil {
		s.respondWithStoreError(w, r, "Failed to get preference", err)
		return
	}
	if !found {
		if def, ok := s.store.Definition(key); ok {
			value = def.DefaultValue
		}
	}
	s.respondWithJSON(w, r, http.StatusOK, preferenceResponse{Key: key, Value: value, Found: found})
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req setPreferenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Value) == 0 {
		s.respondWithError(w, r, http.StatusBadRequest, "Missing value", nil)
		return
	}
	var value interface{}
	if err := json.Unmarshal(req.Value, &value); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid value", err)
		return
	}

	if err := s.store.Set(r.Context(), key, value); err != nil {
		s.respondWithStoreError(w, r, "Failed to set preference", err)
		return
	}

	if key == morestickers.RegionKey && s.localizer != nil {
		if err := s.localizer.Reload(r.Context()); err != nil {
			s.logger.Warn("failed to reload localizer", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.store.Delete(r.Context(), key); err != nil {
		s.respondWithStoreError(w, r, "Failed to delete preference", err)
		return
	}
	if key == morestickers.RegionKey && s.localizer != nil {
		if err := s.localizer.Reload(r.Context()); err != nil {
			s.logger.Warn("failed to reload localizer", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	state, err := s.settings.State(r.Context())
	if err != nil {
		s.respondWithStoreError(w, r, "Failed to load settings", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, state)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Region != nil {
		if err := s.settings.ChangeLanguage(r.Context(), *req.Region); err != nil {
			s.respondWithStoreError(w, r, "Failed to change language", err)
			return
		}
	}
	if req.NoResize != nil {
		if err := s.settings.SetNoResize(r.Context(), *req.NoResize); err != nil {
			s.respondWithStoreError(w, r, "Failed to change resize setting", err)
			return
		}
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions := []string{i18n.BaseLocale}
	if s.localizer != nil {
		regions = s.localizer.SupportedRegions()
	}
	s.respondWithJSON(w, r, http.StatusOK, map[string][]string{"regions": regions})
}

func (s *Server) handleLocalize(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	region := i18n.BaseLocale
	if s.localizer != nil {
		region = s.localizer.Region()
		text = s.localizer.Localize(text)
	}
	s.respondWithJSON(w, r, http.StatusOK, map[string]string{"region": region, "text": text})
}

func (s *Server) handleProxyURL(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		s.respondWithError(w, r, http.StatusBadRequest, "Missing url parameter", nil)
		return
	}
	if u, err := url.Parse(target); err != nil || u.Scheme == "" || u.Host == "" {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid url parameter", err)
		return
	}
	s.respondWithJSON(w, r, http.StatusOK, map[string]string{"url": s.proxy.URL(target)})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid request payload", err)
		return false
	}
	return true
}

// respondWithStoreError maps Store errors to a status code.
func (s *Server) respondWithStoreError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, morestickers.ErrInvalidKey),
		errors.Is(err, morestickers.ErrInvalidType),
		errors.Is(err, morestickers.ErrInvalidValue):
		status = http.StatusBadRequest
	case errors.Is(err, morestickers.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	s.respondWithError(w, r, status, message, err)
}

func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := map[string]string{"message": message}
	if err != nil {
		body["details"] = err.Error()
	}
	s.logger.Error("API Error", "status", status, "message", message, "path", r.URL.Path, "error", err)
	s.respondWithJSON(w, r, status, map[string]interface{}{"error": body})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, _ *http.Request, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Failed to marshal response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
