package dispatcher

import (
	"context"

	"github.com/garyjia/office-orders/internal/domain/event"
)

// Handler processes task events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// Describe returns a subscribe option that attaches a description to the handler
func Describe(description string) SubscribeOption {
	return func(h *HandlerInfo) {
		h.Description = description
	}
}

// SubscribeOption adjusts handler metadata at registration
type SubscribeOption func(*HandlerInfo)
