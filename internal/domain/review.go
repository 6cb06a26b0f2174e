package domain

import "time"

// ReviewTarget names what a review rates
type ReviewTarget string

const (
	ReviewTargetEvent ReviewTarget = "event"
	ReviewTargetVenue ReviewTarget = "venue"
)

// Review rates exactly one of an event or a venue
type Review struct {
	ID         string     `json:"id"`
	EventID    *string    `json:"eventId,omitempty"`
	VenueID    *string    `json:"venueId,omitempty"`
	UserID     string     `json:"userId" validate:"required"`
	Rating     int        `json:"rating" validate:"gte=1,lte=5"`
	Comment    string     `json:"comment" validate:"max=2000"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	OrphanedAt *time.Time `json:"orphanedAt,omitempty"`
}

func (r *Review) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	hasEvent := r.EventID != nil && *r.EventID != ""
	hasVenue := r.VenueID != nil && *r.VenueID != ""
	if hasEvent == hasVenue {
		return NewValidationError("eventId", "exactly one of eventId or venueId must be set")
	}
	return nil
}

// Target returns the kind and id of the reviewed entity
func (r *Review) Target() (ReviewTarget, string) {
	if r.EventID != nil && *r.EventID != "" {
		return ReviewTargetEvent, *r.EventID
	}
	if r.VenueID != nil {
		return ReviewTargetVenue, *r.VenueID
	}
	return "", ""
}

func (r *Review) Clone() *Review {
	c := *r
	if r.EventID != nil {
		id := *r.EventID
		c.EventID = &id
	}
	if r.VenueID != nil {
		id := *r.VenueID
		c.VenueID = &id
	}
	if r.OrphanedAt != nil {
		t := *r.OrphanedAt
		c.OrphanedAt = &t
	}
	return &c
}

// CursorFor resumes a listing after r
func (r *Review) CursorFor(SortMode) Cursor {
	return Cursor{Mode: SortByCreated, Time: r.CreatedAt, ID: r.ID}
}
