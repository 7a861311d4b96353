package transport

import (
	"context"

	"github.com/avvvet/coffeebuddy/internal/models"
)

// MessageProcessor is the pipeline as seen by a transport. It always yields
// a reply; errors are already mapped to user-facing text.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg *models.InboundMessage) string
}
