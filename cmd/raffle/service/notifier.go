package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
	"github.com/lyzr/raffle/common/queue"
)

// DeliverFunc sends one assignment to its giver
type DeliverFunc func(ctx context.Context, event models.AssignmentEvent) error

// Notifier consumes assignment events, logs the message that would be
// mailed to each giver and hands the event to an optional delivery func.
type Notifier struct {
	queue   queue.Queue
	deliver DeliverFunc
	log     *logger.Logger
}

// NewNotifier creates a notifier; deliver may be nil
func NewNotifier(q queue.Queue, deliver DeliverFunc, log *logger.Logger) *Notifier {
	return &Notifier{queue: q, deliver: deliver, log: log}
}

// Start subscribes to the assignments topic until ctx is done
func (n *Notifier) Start(ctx context.Context) error {
	if err := n.queue.Subscribe(ctx, AssignmentsTopic, n.handle); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", AssignmentsTopic, err)
	}
	return nil
}

func (n *Notifier) handle(ctx context.Context, key string, value []byte) error {
	var event models.AssignmentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode assignment event %s: %w", key, err)
	}

	n.log.WithGenerationID(event.GenerationID.String()).Info("assignment notification",
		"to", event.GiverContact,
		"giver", event.GiverName,
		"recipient", event.RecipientName,
	)

	if n.deliver == nil {
		return nil
	}
	return n.deliver(ctx, event)
}
