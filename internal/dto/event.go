package dto

import (
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// TicketTierInput declares one inventory bucket. Available starts at Allocation.
type TicketTierInput struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Allocation int     `json:"allocation"`
}

// ToTiers converts inputs into unsold tiers
func ToTiers(in []TicketTierInput) []domain.TicketTier {
	tiers := make([]domain.TicketTier, len(in))
	for i, t := range in {
		tiers[i] = domain.TicketTier{Name: t.Name, Price: t.Price, Allocation: t.Allocation, Available: t.Allocation}
	}
	return tiers
}

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	EventType    domain.EventType    `json:"eventType"`
	Location     domain.GeoPoint     `json:"location"`
	StartDate    time.Time           `json:"startDate"`
	EndDate      time.Time           `json:"endDate"`
	OrganizerID  string              `json:"organizerId"`
	MaxAttendees int                 `json:"maxAttendees"`
	Price        float64             `json:"price"`
	Currency     string              `json:"currency"`
	IsFree       bool                `json:"isFree"`
	Status       domain.EventStatus  `json:"status"`
	Tags         []string            `json:"tags"`
	Details      domain.EventDetails `json:"details"`
	VenueID      *string             `json:"venueId"`
	TicketTiers  []TicketTierInput   `json:"ticketTiers"`
}

// UpdateEventRequest is a partial update. Nil fields are left unchanged.
type UpdateEventRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Category     *string              `json:"category"`
	EventType    *domain.EventType    `json:"eventType"`
	Location     *domain.GeoPoint     `json:"location"`
	StartDate    *time.Time           `json:"startDate"`
	EndDate      *time.Time           `json:"endDate"`
	MaxAttendees *int                 `json:"maxAttendees"`
	Price        *float64             `json:"price"`
	Currency     *string              `json:"currency"`
	IsFree       *bool                `json:"isFree"`
	Status       *domain.EventStatus  `json:"status"`
	Tags         []string             `json:"tags"`
	Details      *domain.EventDetails `json:"details"`
	// VenueID set to "" detaches the venue
	VenueID     *string           `json:"venueId"`
	TicketTiers []TicketTierInput `json:"ticketTiers"`
}

// Apply merges the patch into e. A type change must carry its matching detail block.
func (r *UpdateEventRequest) Apply(e *domain.Event) error {
	if r.EventType != nil && *r.EventType != e.EventType && r.Details == nil {
		return domain.NewValidationError("details", "changing eventType requires a %s detail block", *r.EventType)
	}
	if r.Status != nil && !e.Status.CanTransitionTo(*r.Status) {
		return domain.NewValidationError("status", "cannot move from %s to %s", e.Status, *r.Status)
	}

	if r.Title != nil {
		e.Title = *r.Title
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.Category != nil {
		e.Category = *r.Category
	}
	if r.EventType != nil {
		e.EventType = *r.EventType
	}
	if r.Details != nil {
		e.Details = *r.Details
	}
	if r.Location != nil {
		e.Location = r.Location.Normalize()
	}
	if r.StartDate != nil {
		e.StartDate = r.StartDate.UTC()
	}
	if r.EndDate != nil {
		e.EndDate = r.EndDate.UTC()
	}
	if r.MaxAttendees != nil {
		e.MaxAttendees = *r.MaxAttendees
	}
	if r.Price != nil {
		e.Price = *r.Price
	}
	if r.Currency != nil {
		e.Currency = *r.Currency
	}
	if r.IsFree != nil {
		e.IsFree = *r.IsFree
	}
	if r.Status != nil {
		e.Status = *r.Status
	}
	if r.Tags != nil {
		e.Tags = r.Tags
	}
	if r.TicketTiers != nil {
		e.TicketTiers = ToTiers(r.TicketTiers)
	}
	return nil
}

// EventSearchParams are the query-string parameters of event discovery
type EventSearchParams struct {
	Lng         string   `form:"lng"`
	Lat         string   `form:"lat"`
	Radius      string   `form:"radius"`
	Q           string   `form:"q"`
	Category    []string `form:"category"`
	EventType   string   `form:"eventType"`
	Status      string   `form:"status"`
	StartAfter  string   `form:"startAfter"`
	StartBefore string   `form:"startBefore"`
	MinCapacity string   `form:"minCapacity"`
	// Detail filters are field:op:value, e.g. ageRestriction:gte:18
	Detail []string `form:"detail"`
	Cursor string   `form:"cursor"`
	Limit  string   `form:"limit"`
}

// ToQuery parses the parameters. Malformed input is an InvalidQueryError.
func (p *EventSearchParams) ToQuery() (*domain.EventQuery, error) {
	q := &domain.EventQuery{
		Text:       p.Q,
		Categories: splitValues(p.Category),
		EventType:  domain.EventType(p.EventType),
		Status:     domain.EventStatus(p.Status),
		Cursor:     p.Cursor,
	}
	var err error
	if q.Near, err = parseNear(p.Lng, p.Lat, p.Radius); err != nil {
		return nil, err
	}
	if q.StartAfter, err = parseTime("startAfter", p.StartAfter); err != nil {
		return nil, err
	}
	if q.StartBefore, err = parseTime("startBefore", p.StartBefore); err != nil {
		return nil, err
	}
	if q.MinCapacity, err = parseInt("minCapacity", p.MinCapacity); err != nil {
		return nil, err
	}
	if q.Limit, err = parseInt("limit", p.Limit); err != nil {
		return nil, err
	}
	if q.Status != "" {
		switch q.Status {
		case domain.EventStatusDraft, domain.EventStatusPublished, domain.EventStatusCancelled, domain.EventStatusCompleted:
		default:
			return nil, domain.NewInvalidQueryError("unknown status %q", q.Status)
		}
	}
	for _, raw := range p.Detail {
		field, op, value, err := splitDetail(raw)
		if err != nil {
			return nil, err
		}
		if q.EventType == "" {
			return nil, domain.NewInvalidQueryError("detail filters require an eventType")
		}
		pred, err := domain.EventDetailPredicate(q.EventType, field, op, value)
		if err != nil {
			return nil, err
		}
		q.Details = append(q.Details, pred)
	}
	return q, nil
}

// ToEvent builds an unsaved event. Status defaults to draft.
func (r *CreateEventRequest) ToEvent() *domain.Event {
	status := r.Status
	if status == "" {
		status = domain.EventStatusDraft
	}
	return &domain.Event{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		EventType:    r.EventType,
		Location:     r.Location.Normalize(),
		StartDate:    r.StartDate.UTC(),
		EndDate:      r.EndDate.UTC(),
		OrganizerID:  r.OrganizerID,
		MaxAttendees: r.MaxAttendees,
		Price:        r.Price,
		Currency:     r.Currency,
		IsFree:       r.IsFree,
		Status:       status,
		Tags:         r.Tags,
		Details:      r.Details,
		VenueID:      r.VenueID,
		TicketTiers:  ToTiers(r.TicketTiers),
	}
}
