package portal

import (
	"context"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

// EventPublisher receives session state transitions. Implementations must
// not block for long; publishing happens under the user's session lock.
type EventPublisher interface {
	Publish(ctx context.Context, event models.SessionEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.SessionEvent) {}
