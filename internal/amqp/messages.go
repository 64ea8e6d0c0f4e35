package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Trip event actions recorded in the activity feed.
const (
	ActionTripCreated         = "trip_created"
	ActionTripUpdated         = "trip_updated"
	ActionExpenseAdded        = "expense_added"
	ActionExpenseUpdated      = "expense_updated"
	ActionExpenseDeleted      = "expense_deleted"
	ActionCollaboratorAdded   = "collaborator_added"
	ActionCollaboratorRemoved = "collaborator_removed"
)

// TripEventMessage tells the activity worker that something happened on a
// trip. Detail carries a small action-specific JSON object; the worker
// stores it verbatim, it never needs to parse it.
type TripEventMessage struct {
	ID         string          `json:"id"`
	TripID     int64           `json:"trip_id"`
	ActorID    int64           `json:"actor_id"`
	Action     string          `json:"action"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewTripEventMessage(tripID, actorID int64, action string, detail json.RawMessage) *TripEventMessage {
	return &TripEventMessage{
		ID:         uuid.NewString(),
		TripID:     tripID,
		ActorID:    actorID,
		Action:     action,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}

func (m *TripEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TripEventMessageFromJSON(data []byte) (*TripEventMessage, error) {
	var msg TripEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
