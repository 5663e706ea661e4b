package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// PreferenceStore defines the preference operations used by the handler.
type PreferenceStore interface {
	Record(ctx context.Context, scope entities.Scope, kind entities.PreferenceKind, value string, weight float64) (*entities.PreferenceSignal, error)
	List(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceSignal, error)
	Reset(ctx context.Context, scope entities.Scope, mode entities.ResetMode, kind entities.PreferenceKind) (int64, error)
	ResetHistory(ctx context.Context, scope entities.Scope) ([]*entities.PreferenceResetAudit, error)
}

// PreferenceHandler handles preference HTTP requests
type PreferenceHandler struct {
	store PreferenceStore
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(store PreferenceStore) *PreferenceHandler {
	return &PreferenceHandler{store: store}
}

type recordPreferenceRequest struct {
	UserID   string   `json:"user_id"`
	CoupleID string   `json:"couple_id"`
	Kind     string   `json:"kind" validate:"required"`
	Value    string   `json:"value" validate:"required,max=200"`
	Weight   *float64 `json:"weight" validate:"omitempty,min=0"`
}

type resetPreferencesRequest struct {
	UserID   string `json:"user_id"`
	CoupleID string `json:"couple_id"`
	Mode     string `json:"mode" validate:"required,oneof=full category"`
	Kind     string `json:"kind"`
}

// RecordPreference handles POST /api/preferences
func (h *PreferenceHandler) RecordPreference(w http.ResponseWriter, r *http.Request) {
	var req recordPreferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}

	scope := entities.Scope{UserID: strings.TrimSpace(req.UserID), CoupleID: strings.TrimSpace(req.CoupleID)}
	kind := entities.PreferenceKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	signal, err := h.store.Record(r.Context(), scope, kind, req.Value, weight)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, signal)
}

// ListPreferences handles GET /api/preferences
func (h *PreferenceHandler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	signals, err := h.store.List(r.Context(), scopeFromQuery(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"preferences": signals,
		"count":       len(signals),
	})
}

// ResetPreferences handles POST /api/preferences/reset
func (h *PreferenceHandler) ResetPreferences(w http.ResponseWriter, r *http.Request) {
	var req resetPreferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	scope := entities.Scope{UserID: strings.TrimSpace(req.UserID), CoupleID: strings.TrimSpace(req.CoupleID)}
	kind := entities.PreferenceKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	deleted, err := h.store.Reset(r.Context(), scope, entities.ResetMode(req.Mode), kind)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"mode":    req.Mode,
		"deleted": deleted,
	})
}

// ListResets handles GET /api/preferences/resets
func (h *PreferenceHandler) ListResets(w http.ResponseWriter, r *http.Request) {
	audits, err := h.store.ResetHistory(r.Context(), scopeFromQuery(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"resets": audits,
		"count":  len(audits),
	})
}
