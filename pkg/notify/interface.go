package notify

import (
	"context"
	"errors"
)

// ErrChannelUnsupported is returned by providers that cannot serve a
// channel; the fanout records the attempt as failed and moves on.
var ErrChannelUnsupported = errors.New("notification channel not supported by provider")

// Provider is the outbound transport capability: fire-and-forget sends,
// failures are the caller's to log.
type Provider interface {
	SendSMS(ctx context.Context, request *MessageRequest) (*SendResponse, error)
	SendWhatsApp(ctx context.Context, request *MessageRequest) (*SendResponse, error)
	PlaceCall(ctx context.Context, request *CallRequest) (*SendResponse, error)
}

type MessageRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

type CallRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"` // spoken via TTS when the callee answers
}

type SendResponse struct {
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}
