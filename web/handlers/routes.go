package handlers

import "net/http"

// RegisterRoutes mounts the REST API on mux. Every route is instrumented
// under its pattern.
func RegisterRoutes(mux *http.ServeMux, h *APIHandlers) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /api/dimensions", h.ListDimensions},
		{"GET /api/activities", h.ListActivities},
		{"POST /api/activities", h.CreateActivity},
		{"GET /api/activities/{name}/analysis", h.GetAnalysis},
		{"POST /api/match", h.Match},
		{"GET /api/session", h.GetSession},
		{"PUT /api/session/targets/{key}", h.SetTarget},
		{"DELETE /api/session/targets", h.ResetTargets},
		{"PUT /api/session/tolerance", h.SetTolerance},
		{"GET /api/session/draft", h.GetDraft},
		{"PUT /api/overrides/{name}/{key}", h.SetOverride},
		{"DELETE /api/overrides", h.ResetOverrides},
	}
	for _, rt := range routes {
		mux.Handle(rt.pattern, Instrument(rt.pattern, rt.handler))
	}
}
