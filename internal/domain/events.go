package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEventType names a published change notification
type DomainEventType string

const (
	CheckinRecorded DomainEventType = "checkin.recorded"
	ReviewChanged   DomainEventType = "review.changed"
	VenueUpdated    DomainEventType = "venue.updated"
	EventDeleted    DomainEventType = "event.deleted"
)

// DomainEvent is the envelope published after a committed write
type DomainEvent struct {
	ID          string                 `json:"id"`
	Type        DomainEventType        `json:"type"`
	AggregateID string                 `json:"aggregateId"`
	OccurredAt  time.Time              `json:"occurredAt"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// NewDomainEvent stamps a new event with a random id
func NewDomainEvent(t DomainEventType, aggregateID string, at time.Time, data map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: aggregateID,
		OccurredAt:  at,
		Data:        data,
	}
}
