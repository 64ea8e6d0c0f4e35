package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smarttravel/internal/amqp"
	"smarttravel/internal/core"
	"smarttravel/internal/storage"
)

// TripService orchestrates trip and collaborator operations across SQLite
// and AMQP. Owners control the trip itself and its collaborator list;
// collaborators get read access plus expense management.
type TripService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTripService(repo *storage.SQLiteRepository, amqpClient *amqp.Client) *TripService {
	return &TripService{
		storage:    repo,
		amqpClient: amqpClient,
	}
}

// CreateTrip validates and saves a trip owned by the actor.
func (s *TripService) CreateTrip(ctx context.Context, actor core.User, t core.Trip) (core.Trip, error) {
	t.OwnerID = actor.ID
	if strings.TrimSpace(string(t.TravelerType)) == "" {
		t.TravelerType = core.TravelerMedium
	}
	if strings.TrimSpace(t.Currency) == "" {
		t.Currency = actor.Currency
	}
	t.Currency = core.NormalizeCurrency(t.Currency)

	if err := t.Validate(); err != nil {
		return core.Trip{}, err
	}

	created, err := s.storage.CreateTrip(ctx, t)
	if err != nil {
		return core.Trip{}, fmt.Errorf("save trip: %w", err)
	}

	s.publishEvent(ctx, created.ID, actor.ID, amqp.ActionTripCreated, eventDetail{"trip_name": created.Name})
	return created, nil
}

// GetTrip returns the trip when the actor is its owner or a collaborator.
func (s *TripService) GetTrip(ctx context.Context, actor core.User, tripID int64) (core.Trip, error) {
	return s.authorizeView(ctx, actor, tripID)
}

// ListTrips returns every trip the actor owns or collaborates on.
func (s *TripService) ListTrips(ctx context.Context, actor core.User) ([]core.Trip, error) {
	return s.storage.ListTripsForUser(ctx, actor.ID)
}

// UpdateTrip replaces the trip's editable fields. Owner only. Fields left
// empty keep the existing trip's values, so an update that omits the
// traveler type or currency is as valid as the create that omitted them.
func (s *TripService) UpdateTrip(ctx context.Context, actor core.User, t core.Trip) (core.Trip, error) {
	existing, err := s.authorizeOwner(ctx, actor, t.ID)
	if err != nil {
		return core.Trip{}, err
	}

	t.OwnerID = existing.OwnerID
	t.CreatedAt = existing.CreatedAt
	if strings.TrimSpace(string(t.TravelerType)) == "" {
		t.TravelerType = existing.TravelerType
	}
	if strings.TrimSpace(t.Currency) == "" {
		t.Currency = existing.Currency
	}
	t.Currency = core.NormalizeCurrency(t.Currency)
	if err := t.Validate(); err != nil {
		return core.Trip{}, err
	}

	if err := s.storage.UpdateTrip(ctx, t); err != nil {
		return core.Trip{}, fmt.Errorf("update trip: %w", err)
	}

	s.publishEvent(ctx, t.ID, actor.ID, amqp.ActionTripUpdated, eventDetail{"trip_name": t.Name})
	return t, nil
}

// DeleteTrip removes the trip and everything hanging off it. Owner only.
func (s *TripService) DeleteTrip(ctx context.Context, actor core.User, tripID int64) error {
	if _, err := s.authorizeOwner(ctx, actor, tripID); err != nil {
		return err
	}
	return s.storage.DeleteTrip(ctx, tripID)
}

// AddCollaboratorByEmail invites an existing user onto the trip. Owner only.
func (s *TripService) AddCollaboratorByEmail(ctx context.Context, actor core.User, tripID int64, email string) (core.User, error) {
	trip, err := s.authorizeOwner(ctx, actor, tripID)
	if err != nil {
		return core.User{}, err
	}

	invitee, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, err
	}
	if invitee.ID == trip.OwnerID {
		return core.User{}, &core.ValidationError{Field: "email", Err: errors.New("owner is already on the trip")}
	}

	if err := s.storage.AddCollaborator(ctx, tripID, invitee.ID); err != nil {
		return core.User{}, fmt.Errorf("add collaborator: %w", err)
	}

	s.publishEvent(ctx, tripID, actor.ID, amqp.ActionCollaboratorAdded, eventDetail{"user_id": invitee.ID})
	return invitee, nil
}

// RemoveCollaborator takes a user off the trip. Owner only.
func (s *TripService) RemoveCollaborator(ctx context.Context, actor core.User, tripID, userID int64) error {
	if _, err := s.authorizeOwner(ctx, actor, tripID); err != nil {
		return err
	}
	if err := s.storage.RemoveCollaborator(ctx, tripID, userID); err != nil {
		return err
	}
	s.publishEvent(ctx, tripID, actor.ID, amqp.ActionCollaboratorRemoved, eventDetail{"user_id": userID})
	return nil
}

// ListCollaborators returns the trip's collaborator list for anyone on it.
func (s *TripService) ListCollaborators(ctx context.Context, actor core.User, tripID int64) ([]core.User, error) {
	if _, err := s.authorizeView(ctx, actor, tripID); err != nil {
		return nil, err
	}
	return s.storage.ListCollaborators(ctx, tripID)
}

// ListActivity returns the trip's recent activity feed for anyone on it.
func (s *TripService) ListActivity(ctx context.Context, actor core.User, tripID int64, limit int) ([]storage.ActivityEntry, error) {
	if _, err := s.authorizeView(ctx, actor, tripID); err != nil {
		return nil, err
	}
	return s.storage.ListActivityByTrip(ctx, tripID, limit)
}

// authorizeView loads the trip and checks the actor can see it. A trip that
// exists but is off limits reports ErrForbidden, never a masked not-found.
func (s *TripService) authorizeView(ctx context.Context, actor core.User, tripID int64) (core.Trip, error) {
	trip, err := s.storage.GetTrip(ctx, tripID)
	if err != nil {
		return core.Trip{}, err
	}
	if trip.OwnerID == actor.ID {
		return trip, nil
	}
	ok, err := s.storage.IsCollaborator(ctx, tripID, actor.ID)
	if err != nil {
		return core.Trip{}, err
	}
	if !ok {
		return core.Trip{}, ErrForbidden
	}
	return trip, nil
}

func (s *TripService) authorizeOwner(ctx context.Context, actor core.User, tripID int64) (core.Trip, error) {
	trip, err := s.storage.GetTrip(ctx, tripID)
	if err != nil {
		return core.Trip{}, err
	}
	if trip.OwnerID != actor.ID {
		return core.Trip{}, ErrForbidden
	}
	return trip, nil
}

type eventDetail map[string]any

// publishEvent sends a trip event for the activity feed. Publish failures
// are logged and swallowed; the request already succeeded locally.
func (s *TripService) publishEvent(ctx context.Context, tripID, actorID int64, action string, detail eventDetail) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping trip event", "action", action)
		return
	}

	body, err := json.Marshal(detail)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal event detail", "action", action, "error", err)
		body = []byte("{}")
	}

	msg := amqp.NewTripEventMessage(tripID, actorID, action, body)
	if err := s.amqpClient.PublishTripEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish trip event",
			"trip_id", tripID,
			"action", action,
			"error", err)
		// Don't fail the request - the change is saved locally
	}
}
