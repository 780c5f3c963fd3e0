package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/scrypster/activity-architect/internal/config"
	"github.com/scrypster/activity-architect/internal/engine"
	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/session"
	"github.com/scrypster/activity-architect/internal/storage"
	"github.com/scrypster/activity-architect/pkg/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// targetParamPrefix marks analysis query parameters that carry targets,
// e.g. ?t.flow=8&t.risk=3.
const targetParamPrefix = "t."

// APIHandlers contains HTTP handlers for the REST API.
type APIHandlers struct {
	session *session.Session
	hub     *SessionHub
	config  *config.Config
}

// NewAPIHandlers creates a new APIHandlers instance. hub may be nil, in which
// case session changes are not pushed to socket clients.
func NewAPIHandlers(sess *session.Session, hub *SessionHub, cfg *config.Config) *APIHandlers {
	return &APIHandlers{
		session: sess,
		hub:     hub,
		config:  cfg,
	}
}

// ListDimensions handles GET /api/dimensions.
func (h *APIHandlers) ListDimensions(w http.ResponseWriter, r *http.Request) {
	dims := h.session.Dimensions()
	respondJSON(w, http.StatusOK, DimensionsResponse{
		Dimensions: dims,
		Count:      len(dims),
	})
}

// ListActivities handles GET /api/activities. Scores include taxonomy edits.
func (h *APIHandlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	acts := h.session.EffectiveActivities()
	respondJSON(w, http.StatusOK, ActivitiesResponse{
		Activities: acts,
		Count:      len(acts),
	})
}

// Match handles POST /api/match. The query does not touch the session's
// own targets.
func (h *APIHandlers) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid match request", err)
		return
	}

	targets := types.TargetVector(req.Targets)
	if err := h.checkKeys(targets); err != nil {
		respondError(w, http.StatusBadRequest, "invalid match request", err)
		return
	}

	tolerance := h.session.Tolerance()
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}

	res := h.session.Match(targets, tolerance)
	resp := MatchResponse{Result: res}
	if res.State == engine.StateNoMatches {
		d := h.session.DraftFor(targets)
		resp.Draft = &d
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetAnalysis handles GET /api/activities/{name}/analysis.
//
// Targets come from t.<key> query parameters when any are present and from
// the session otherwise. tolerance defaults to the session's.
func (h *APIHandlers) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	name := extractID(r, "name")
	if strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, "activity name is required", nil)
		return
	}

	targets, explicit, err := parseTargetParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid target parameter", err)
		return
	}
	if !explicit {
		targets = h.session.Targets()
	}

	tolerance := h.session.Tolerance()
	if raw := r.URL.Query().Get("tolerance"); raw != "" {
		tolerance, err = strconv.ParseFloat(raw, 64)
		if err == nil {
			err = types.ValidateTolerance(tolerance)
		}
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid tolerance", err)
			return
		}
	}

	analysis, err := h.session.AnalyzeWith(name, targets, tolerance)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// GetSession handles GET /api/session.
func (h *APIHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// SetTarget handles PUT /api/session/targets/{key}. A value of 0 deactivates
// the dimension.
func (h *APIHandlers) SetTarget(w http.ResponseWriter, r *http.Request) {
	key := extractID(r, "key")
	var req TargetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid target", err)
		return
	}
	if err := h.session.SetTarget(key, *req.Value); err != nil {
		respondSessionError(w, err)
		return
	}
	h.respondSnapshot(w)
}

// ResetTargets handles DELETE /api/session/targets.
func (h *APIHandlers) ResetTargets(w http.ResponseWriter, r *http.Request) {
	h.session.ResetTargets()
	h.respondSnapshot(w)
}

// SetTolerance handles PUT /api/session/tolerance.
func (h *APIHandlers) SetTolerance(w http.ResponseWriter, r *http.Request) {
	var req ToleranceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid tolerance", err)
		return
	}
	if err := h.session.SetTolerance(*req.Tolerance); err != nil {
		respondSessionError(w, err)
		return
	}
	h.respondSnapshot(w)
}

// GetDraft handles GET /api/session/draft.
func (h *APIHandlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Draft())
}

// CreateActivity handles POST /api/activities.
func (h *APIHandlers) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity", err)
		return
	}

	scores := types.Scores(req.Scores)
	if err := h.checkKeys(types.TargetVector(scores)); err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity", err)
		return
	}

	a, err := h.session.AddActivity(r.Context(), req.Name, scores)
	persisted := true
	if errors.Is(err, session.ErrNotPersisted) {
		persisted = false
	} else if err != nil {
		respondSessionError(w, err)
		return
	}

	h.notify()
	respondJSON(w, http.StatusCreated, ActivityResponse{Activity: a, Persisted: persisted})
}

// SetOverride handles PUT /api/overrides/{name}/{key}.
func (h *APIHandlers) SetOverride(w http.ResponseWriter, r *http.Request) {
	name := extractID(r, "name")
	key := extractID(r, "key")

	var req OverrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid override", err)
		return
	}

	err := h.session.Edit(r.Context(), name, key, *req.Value)
	h.respondMutation(w, err)
}

// ResetOverrides handles DELETE /api/overrides.
func (h *APIHandlers) ResetOverrides(w http.ResponseWriter, r *http.Request) {
	err := h.session.ResetEdits(r.Context())
	h.respondMutation(w, err)
}

// respondMutation answers a change that may have been applied in memory
// without reaching the store.
func (h *APIHandlers) respondMutation(w http.ResponseWriter, err error) {
	persisted := true
	if errors.Is(err, session.ErrNotPersisted) {
		persisted = false
	} else if err != nil {
		respondSessionError(w, err)
		return
	}

	snap := h.notify()
	respondJSON(w, http.StatusOK, MutationResponse{Persisted: persisted, Session: snap})
}

func (h *APIHandlers) respondSnapshot(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, h.notify())
}

// notify pushes the current snapshot to socket clients and returns it.
func (h *APIHandlers) notify() session.Snapshot {
	snap := h.session.Snapshot()
	if h.hub != nil {
		h.hub.Broadcast(SocketEvent{Type: "session", Session: &snap})
	}
	return snap
}

// checkKeys rejects keys the catalog does not define.
func (h *APIHandlers) checkKeys(v types.TargetVector) error {
	dims := h.session.Dimensions()
	for k := range v {
		if !dims.Has(k) {
			return fmt.Errorf("%w: %q", session.ErrUnknownDimension, k)
		}
	}
	return nil
}

// parseTargetParams collects t.<key>=value query parameters. explicit is
// false when none were given.
func parseTargetParams(r *http.Request) (types.TargetVector, bool, error) {
	targets := types.TargetVector{}
	explicit := false
	for param, values := range r.URL.Query() {
		if !strings.HasPrefix(param, targetParamPrefix) || len(values) == 0 {
			continue
		}
		key := strings.TrimPrefix(param, targetParamPrefix)
		if key == "" {
			return nil, false, fmt.Errorf("empty dimension key in %q", param)
		}
		v, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", param, err)
		}
		if err := types.ValidateScore(v); err != nil {
			return nil, false, fmt.Errorf("%s: %w", param, err)
		}
		explicit = true
		if v != 0 {
			targets[key] = v
		}
	}
	return targets, explicit, nil
}

// extractID extracts a path parameter from the request.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	return true
}

// statusForError maps session and storage errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrActivityNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrDuplicateActivity):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownDimension),
		errors.Is(err, types.ErrInvalidScore),
		errors.Is(err, types.ErrInvalidTolerance),
		errors.Is(err, types.ErrInvalidActivity),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondSessionError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Msg("request failed")
		respondError(w, status, "internal error", nil)
		return
	}
	respondError(w, status, err.Error(), nil)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already sent
		logging.Warn().Err(err).Msg("failed to encode JSON response")
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
