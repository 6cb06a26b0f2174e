package dto

import (
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// CreateCheckinRequest records an attendee entering an event
type CreateCheckinRequest struct {
	EventID     string                 `json:"eventId"`
	UserID      string                 `json:"userId"`
	CheckInTime *time.Time             `json:"checkInTime"`
	Method      domain.CheckinMethod   `json:"method"`
	TicketTier  string                 `json:"ticketTier"`
	Location    *domain.GeoPoint       `json:"location"`
	Metadata    domain.CheckinMetadata `json:"metadata"`
}

// ToCheckin builds an unsaved checkin. A missing time is filled by the service.
func (r *CreateCheckinRequest) ToCheckin() *domain.Checkin {
	c := &domain.Checkin{
		EventID:    r.EventID,
		UserID:     r.UserID,
		Method:     r.Method,
		TicketTier: r.TicketTier,
		Metadata:   r.Metadata,
	}
	if r.CheckInTime != nil {
		c.CheckInTime = r.CheckInTime.UTC()
	}
	if r.Location != nil {
		p := r.Location.Normalize()
		c.Location = &p
	}
	return c
}
