package handlers

import (
	"github.com/scrypster/activity-architect/internal/engine"
	"github.com/scrypster/activity-architect/internal/session"
	"github.com/scrypster/activity-architect/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// DimensionsResponse is the response for GET /api/dimensions.
type DimensionsResponse struct {
	Dimensions types.DimensionCatalog `json:"dimensions"`
	Count      int                    `json:"count"`
}

// ActivitiesResponse is the response for GET /api/activities.
type ActivitiesResponse struct {
	Activities []types.Activity `json:"activities"`
	Count      int              `json:"count"`
}

// MatchRequest is the body of POST /api/match.
type MatchRequest struct {
	Targets   map[string]float64 `json:"targets" validate:"dive,keys,required,endkeys,gte=0,lte=10"`
	Tolerance *float64           `json:"tolerance,omitempty" validate:"omitempty,gte=0.5,lte=5"`
}

// MatchResponse wraps an engine result. When targets are active and nothing
// matches, Draft carries a pre-filled new activity for the innovation zone.
type MatchResponse struct {
	engine.Result
	Draft *session.Draft `json:"draft,omitempty"`
}

// TargetRequest is the body of PUT /api/session/targets/{key}.
type TargetRequest struct {
	Value *float64 `json:"value" validate:"required,gte=0,lte=10"`
}

// ToleranceRequest is the body of PUT /api/session/tolerance.
type ToleranceRequest struct {
	Tolerance *float64 `json:"tolerance" validate:"required,gte=0.5,lte=5"`
}

// OverrideRequest is the body of PUT /api/overrides/{name}/{key}.
type OverrideRequest struct {
	Value *float64 `json:"value" validate:"required,gte=0,lte=10"`
}

// CreateActivityRequest is the body of POST /api/activities.
type CreateActivityRequest struct {
	Name   string             `json:"name" validate:"required,max=200"`
	Scores map[string]float64 `json:"scores" validate:"dive,keys,required,endkeys,gte=0,lte=10"`
}

// MutationResponse reports whether a change reached the durable store.
type MutationResponse struct {
	Persisted bool             `json:"persisted"`
	Session   session.Snapshot `json:"session"`
}

// ActivityResponse is the response for POST /api/activities.
type ActivityResponse struct {
	Activity  types.Activity `json:"activity"`
	Persisted bool           `json:"persisted"`
}

// SocketMessage is a client command on /ws/session.
type SocketMessage struct {
	Type      string  `json:"type" validate:"required,oneof=target tolerance reset"`
	Key       string  `json:"key,omitempty" validate:"required_if=Type target"`
	Value     float64 `json:"value,omitempty" validate:"gte=0,lte=10"`
	Tolerance float64 `json:"tolerance,omitempty"`
}

// SocketEvent is pushed to session socket clients.
type SocketEvent struct {
	Type    string            `json:"type"` // "session" or "error"
	Session *session.Snapshot `json:"session,omitempty"`
	Error   string            `json:"error,omitempty"`
}
