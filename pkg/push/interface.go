package push

import "context"

// Provider delivers alerts to agent devices. Best-effort like every other
// transport: a failed push is logged by the caller, never retried here.
type Provider interface {
	SendAlert(ctx context.Context, request *AlertRequest) (*AlertResponse, error)
}

type AlertRequest struct {
	Token      string            `json:"token"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	IncidentID string            `json:"incident_id,omitempty"`
	Priority   string            `json:"priority,omitempty"` // high, normal
	Data       map[string]string `json:"data,omitempty"`
}

type AlertResponse struct {
	MessageID string `json:"message_id,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
