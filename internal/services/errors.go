package services

import "errors"

// Expected, recoverable conditions. Callers check these; anything else is a
// programmer error and propagates as-is.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrIncidentNotLive  = errors.New("incident already resolved, cancelled or marked false alarm")
	ErrNotAuthorized    = errors.New("caller is not authorized for this incident")
	ErrAgentNotFound    = errors.New("safety agent not found")
	ErrNoAgentAvailable = errors.New("no safety agent available")
	ErrUnknownAction    = errors.New("unknown agent action")
)
