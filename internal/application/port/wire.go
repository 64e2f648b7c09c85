package port

import "github.com/garyjia/office-orders/internal/domain/apperr"

// Backend routes
const (
	RouteResolveStatus   = "/api/status/resolve"
	RouteStatuses        = "/api/status"
	RouteUpsertTask      = "/api/tasks/upsert"
	RouteTaskDetails     = "/api/tasks/details"
	RouteTasks           = "/api/tasks"
	RouteComments        = "/api/comments"
	RouteReturnableUsers = "/api/returnable-users"
	RoutePreview         = "/api/preview"
	RouteDraftBody       = "/api/drafts/body"
	RouteExport          = "/api/export"
)

// HeaderRequestID carries the idempotency key of a mutating request
const HeaderRequestID = "X-Request-Id"

// Envelope wraps an encrypted body in both directions
type Envelope struct {
	Data string `json:"data"`
}

// ErrorReply is the plain JSON body of a failed call
type ErrorReply struct {
	Error      string             `json:"error"`
	Code       string             `json:"code"`
	Violations []apperr.Violation `json:"violations,omitempty"`
}

// ResolveStatusRequest asks for the id of a status description
type ResolveStatusRequest struct {
	Description string `json:"description"`
}

// DraftBodyRequest asks for a suggested office-order body
type DraftBodyRequest struct {
	Record Record `json:"record"`
}
