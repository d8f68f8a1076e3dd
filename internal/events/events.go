package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"campus-mobility/pkg/logger"
)

// RideEvent is the payload on every ride.* topic.
type RideEvent struct {
	RideID       string    `json:"ride_id"`
	Actor        string    `json:"actor"`
	Participants int       `json:"participants"`
	Status       string    `json:"status,omitempty"`
	Communities  []string  `json:"communities,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher is what pkg/kafka.Client provides.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Emitter publishes ride events without ever failing the caller.
type Emitter struct {
	pub Publisher
}

// NewEmitter wraps pub. A nil pub yields an emitter that drops everything.
func NewEmitter(pub Publisher) *Emitter {
	return &Emitter{pub: pub}
}

// Emit sends ev on topic keyed by ride id. Errors are logged.
func (e *Emitter) Emit(ctx context.Context, topic string, ev RideEvent) {
	if e == nil || e.pub == nil {
		return
	}
	if err := e.pub.Publish(ctx, topic, ev.RideID, ev); err != nil {
		logger.Warn(ctx, "publish ride event",
			zap.String("topic", topic),
			zap.String("ride_id", ev.RideID),
			zap.Error(err),
		)
	}
}
