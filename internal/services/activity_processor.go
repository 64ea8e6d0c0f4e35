package services

import (
	"context"
	"fmt"
	"log/slog"

	"smarttravel/internal/amqp"
	"smarttravel/internal/storage"
)

// ActivityProcessor turns consumed trip events into activity rows. It runs
// in the worker binary, on the other side of the queue from TripService.
type ActivityProcessor struct {
	storage *storage.SQLiteRepository
}

func NewActivityProcessor(repo *storage.SQLiteRepository) *ActivityProcessor {
	return &ActivityProcessor{storage: repo}
}

// HandleTripEvent persists one event. Returning an error requeues the
// message, so only transient failures should bubble up.
func (p *ActivityProcessor) HandleTripEvent(ctx context.Context, msg *amqp.TripEventMessage) error {
	detail := "{}"
	if len(msg.Detail) > 0 {
		detail = string(msg.Detail)
	}

	err := p.storage.InsertActivity(ctx, storage.ActivityEntry{
		TripID:    msg.TripID,
		ActorID:   msg.ActorID,
		Action:    msg.Action,
		Detail:    detail,
		CreatedAt: msg.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	slog.InfoContext(ctx, "Recorded trip activity",
		"trip_id", msg.TripID,
		"action", msg.Action)
	return nil
}
