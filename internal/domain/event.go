package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// EventType discriminates the event detail variant
type EventType string

const (
	EventTypeInPerson  EventType = "inPerson"
	EventTypeVirtual   EventType = "virtual"
	EventTypeHybrid    EventType = "hybrid"
	EventTypeRecurring EventType = "recurring"
)

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	switch t {
	case EventTypeInPerson, EventTypeVirtual, EventTypeHybrid, EventTypeRecurring:
		return true
	}
	return false
}

// EventStatus is the publication state of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// CanTransitionTo enforces draft -> published -> completed, and cancel from draft or published
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case EventStatusDraft:
		return next == EventStatusPublished || next == EventStatusCancelled
	case EventStatusPublished:
		return next == EventStatusCompleted || next == EventStatusCancelled
	}
	return false
}

// Event is the central discoverable entity
type Event struct {
	ID               string         `json:"id"`
	Title            string         `json:"title" validate:"required,max=200"`
	Description      string         `json:"description" validate:"max=5000"`
	Category         string         `json:"category" validate:"required,max=100"`
	EventType        EventType      `json:"eventType" validate:"required,oneof=inPerson virtual hybrid recurring"`
	Location         GeoPoint       `json:"location"`
	StartDate        time.Time      `json:"startDate" validate:"required"`
	EndDate          time.Time      `json:"endDate" validate:"required"`
	OrganizerID      string         `json:"organizerId" validate:"max=100"`
	MaxAttendees     int            `json:"maxAttendees" validate:"gte=0"`
	CurrentAttendees int            `json:"currentAttendees" validate:"gte=0"`
	Price            float64        `json:"price" validate:"gte=0"`
	Currency         string         `json:"currency" validate:"omitempty,len=3"`
	IsFree           bool           `json:"isFree"`
	Status           EventStatus    `json:"status" validate:"required,oneof=draft published cancelled completed"`
	Tags             []string       `json:"tags" validate:"max=20,dive,required,max=50"`
	Details          EventDetails   `json:"details" validate:"-"`
	VenueID          *string        `json:"venueId,omitempty"`
	Venue            *VenueSnapshot `json:"venue,omitempty"`
	TicketTiers      []TicketTier   `json:"ticketTiers" validate:"dive"`
	Stats            EventStats     `json:"computedStats"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        *time.Time     `json:"deletedAt,omitempty"`
}

// TicketTier is an inventory bucket. Sold + Available always equals Allocation.
type TicketTier struct {
	ID         string  `json:"id"`
	Name       string  `json:"name" validate:"required,max=50"`
	Price      float64 `json:"price" validate:"gte=0"`
	Allocation int     `json:"allocation" validate:"gte=0"`
	Available  int     `json:"available" validate:"gte=0"`
	Sold       int     `json:"sold" validate:"gte=0"`
}

// VenueSnapshot caches the venue fields shown with an event. VenueID stays authoritative.
type VenueSnapshot struct {
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Capacity  int       `json:"capacity"`
	VenueType VenueType `json:"venueType"`
	SyncedAt  time.Time `json:"syncedAt"`
}

// EventStats are derived counters owned by the statistics maintainer
type EventStats struct {
	TotalTicketsSold int        `json:"totalTicketsSold"`
	Revenue          float64    `json:"revenue"`
	AttendanceRate   float64    `json:"attendanceRate"`
	ReviewCount      int        `json:"reviewCount"`
	AverageRating    float64    `json:"averageRating"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
}

// Validate checks tags, coordinates, dates, the detail variant and tier invariants
func (e *Event) Validate() error {
	if err := validateStruct(e); err != nil {
		return err
	}
	if err := e.Location.Validate("location"); err != nil {
		return err
	}
	if e.EndDate.Before(e.StartDate) {
		return NewValidationError("endDate", "must not be before startDate")
	}
	if e.IsFree && e.Price > 0 {
		return NewValidationError("price", "must be 0 for a free event")
	}
	if e.MaxAttendees > 0 && e.CurrentAttendees > e.MaxAttendees {
		return NewValidationError("currentAttendees", "exceeds maxAttendees")
	}
	if err := e.Details.Validate(e.EventType); err != nil {
		return err
	}

	seen := make(map[string]bool, len(e.TicketTiers))
	for i, t := range e.TicketTiers {
		field := fmt.Sprintf("ticketTiers[%d]", i)
		if seen[t.Name] {
			return NewValidationError(field+".name", "duplicate tier name %q", t.Name)
		}
		seen[t.Name] = true
		if t.Sold+t.Available != t.Allocation {
			return NewValidationError(field, "sold + available must equal allocation")
		}
	}
	return nil
}

// Tier returns the tier with the given name
func (e *Event) Tier(name string) *TicketTier {
	for i := range e.TicketTiers {
		if e.TicketTiers[i].Name == name {
			return &e.TicketTiers[i]
		}
	}
	return nil
}

// TicketsSold sums sold across tiers
func (e *Event) TicketsSold() int {
	n := 0
	for _, t := range e.TicketTiers {
		n += t.Sold
	}
	return n
}

// Revenue sums sold * price across tiers
func (e *Event) Revenue() float64 {
	r := 0.0
	for _, t := range e.TicketTiers {
		r += float64(t.Sold) * t.Price
	}
	return RoundTo(r, 2)
}

// ApplySnapshot copies the cached venue fields
func (e *Event) ApplySnapshot(v *Venue, at time.Time) {
	id := v.ID
	e.VenueID = &id
	e.Venue = v.Snapshot(at)
}

// Clone returns a deep copy
func (e *Event) Clone() *Event {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	c.TicketTiers = append([]TicketTier(nil), e.TicketTiers...)
	c.Details = e.Details.clone()
	if e.VenueID != nil {
		id := *e.VenueID
		c.VenueID = &id
	}
	if e.Venue != nil {
		s := *e.Venue
		c.Venue = &s
	}
	if e.Stats.LastUpdated != nil {
		t := *e.Stats.LastUpdated
		c.Stats.LastUpdated = &t
	}
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// AttendanceRate is current/max*100 rounded to two decimals, 0 when max is 0
func AttendanceRate(current, max int) float64 {
	if max <= 0 {
		return 0
	}
	return RoundTo(float64(current)/float64(max)*100, 2)
}

// AverageRating is the mean rounded to one decimal, 0 for no ratings
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return RoundTo(float64(sum)/float64(len(ratings)), 1)
}

// RoundTo rounds half away from zero to the given number of decimals
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// InPersonDetails applies to eventType inPerson
type InPersonDetails struct {
	DoorsOpenMinutes int    `json:"doorsOpenMinutes" validate:"gte=0"`
	DressCode        string `json:"dressCode,omitempty" validate:"max=100"`
	AgeRestriction   int    `json:"ageRestriction" validate:"gte=0,lte=21"`
	ParkingAvailable bool   `json:"parkingAvailable"`
}

// VirtualDetails applies to eventType virtual
type VirtualDetails struct {
	Platform   string `json:"platform" validate:"required,max=100"`
	StreamURL  string `json:"streamUrl,omitempty" validate:"omitempty,url"`
	TimeZone   string `json:"timeZone,omitempty" validate:"max=64"`
	MaxViewers int    `json:"maxViewers" validate:"gte=0"`
}

// HybridDetails applies to eventType hybrid
type HybridDetails struct {
	Platform         string `json:"platform" validate:"required,max=100"`
	StreamURL        string `json:"streamUrl,omitempty" validate:"omitempty,url"`
	InPersonCapacity int    `json:"inPersonCapacity" validate:"gte=0"`
	VirtualCapacity  int    `json:"virtualCapacity" validate:"gte=0"`
}

// RecurringDetails applies to eventType recurring
type RecurringDetails struct {
	Frequency   string     `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Interval    int        `json:"interval" validate:"gte=1"`
	DaysOfWeek  []string   `json:"daysOfWeek,omitempty" validate:"unique,dive,oneof=mon tue wed thu fri sat sun"`
	Until       *time.Time `json:"until,omitempty"`
	Occurrences int        `json:"occurrences" validate:"gte=0"`
}

// EventDetails is a one-of: exactly the member matching the event type may be set
type EventDetails struct {
	InPerson  *InPersonDetails  `json:"inPerson,omitempty"`
	Virtual   *VirtualDetails   `json:"virtual,omitempty"`
	Hybrid    *HybridDetails    `json:"hybrid,omitempty"`
	Recurring *RecurringDetails `json:"recurring,omitempty"`
}

var eventDetailSchemas = map[EventType]detailSchema{
	EventTypeInPerson: {
		"doorsOpenMinutes": KindNumber,
		"ageRestriction":   KindNumber,
		"parkingAvailable": KindBool,
		"dressCode":        KindString,
	},
	EventTypeVirtual: {
		"platform":   KindString,
		"maxViewers": KindNumber,
		"timeZone":   KindString,
	},
	EventTypeHybrid: {
		"platform":         KindString,
		"inPersonCapacity": KindNumber,
		"virtualCapacity":  KindNumber,
	},
	EventTypeRecurring: {
		"frequency":   KindString,
		"interval":    KindNumber,
		"occurrences": KindNumber,
	},
}

// EventDetailPredicate validates a filter on a type-specific event field
func EventDetailPredicate(t EventType, field string, op DetailOp, raw string) (DetailPredicate, error) {
	schema, ok := eventDetailSchemas[t]
	if !ok {
		return DetailPredicate{}, NewInvalidQueryError("unknown eventType %q", t)
	}
	return schema.predicate(string(t), field, op, raw)
}

// EventDetailFields lists the filterable fields of an event type
func EventDetailFields(t EventType) []string {
	return eventDetailSchemas[t].fields()
}

// Kind returns the variant that is set and how many variants are set
func (d EventDetails) Kind() (EventType, int) {
	var kind EventType
	n := 0
	if d.InPerson != nil {
		kind, n = EventTypeInPerson, n+1
	}
	if d.Virtual != nil {
		kind, n = EventTypeVirtual, n+1
	}
	if d.Hybrid != nil {
		kind, n = EventTypeHybrid, n+1
	}
	if d.Recurring != nil {
		kind, n = EventTypeRecurring, n+1
	}
	return kind, n
}

// IsZero reports whether no variant is set
func (d EventDetails) IsZero() bool {
	_, n := d.Kind()
	return n == 0
}

// Validate requires the variant to match t. inPerson may omit its block.
func (d EventDetails) Validate(t EventType) error {
	kind, n := d.Kind()
	switch {
	case n > 1:
		return NewValidationError("details", "exactly one detail block may be set")
	case n == 0 && t == EventTypeInPerson:
		return nil
	case n == 0:
		return NewValidationError("details", "%s event requires a %s detail block", t, t)
	case kind != t:
		return NewValidationError("details", "detail block %s does not match eventType %s", kind, t)
	}
	return detailError(validateStruct(d.Variant()))
}

// Variant returns the set member, or nil
func (d EventDetails) Variant() interface{} {
	switch {
	case d.InPerson != nil:
		return d.InPerson
	case d.Virtual != nil:
		return d.Virtual
	case d.Hybrid != nil:
		return d.Hybrid
	case d.Recurring != nil:
		return d.Recurring
	}
	return nil
}

// Field reads a detail value in its JSON form (numbers as float64)
func (d EventDetails) Field(name string) (interface{}, bool) {
	v := d.Variant()
	if v == nil {
		return nil, false
	}
	val, ok := decodeDetailMap(v)[name]
	return val, ok
}

// MarshalVariant encodes only the set member, as stored in the details column
func (d EventDetails) MarshalVariant() ([]byte, error) {
	v := d.Variant()
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// UnmarshalEventDetails decodes a stored variant for the given type
func UnmarshalEventDetails(t EventType, raw []byte) (EventDetails, error) {
	var d EventDetails
	if len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		if t == EventTypeInPerson {
			return d, nil
		}
	}
	var err error
	switch t {
	case EventTypeInPerson:
		d.InPerson = &InPersonDetails{}
		err = json.Unmarshal(raw, d.InPerson)
	case EventTypeVirtual:
		d.Virtual = &VirtualDetails{}
		err = json.Unmarshal(raw, d.Virtual)
	case EventTypeHybrid:
		d.Hybrid = &HybridDetails{}
		err = json.Unmarshal(raw, d.Hybrid)
	case EventTypeRecurring:
		d.Recurring = &RecurringDetails{}
		err = json.Unmarshal(raw, d.Recurring)
	default:
		return d, fmt.Errorf("unknown event type %q", t)
	}
	if err != nil {
		return EventDetails{}, fmt.Errorf("decode %s details: %w", t, err)
	}
	return d, nil
}

func (d EventDetails) clone() EventDetails {
	var c EventDetails
	if d.InPerson != nil {
		v := *d.InPerson
		c.InPerson = &v
	}
	if d.Virtual != nil {
		v := *d.Virtual
		c.Virtual = &v
	}
	if d.Hybrid != nil {
		v := *d.Hybrid
		c.Hybrid = &v
	}
	if d.Recurring != nil {
		v := *d.Recurring
		v.DaysOfWeek = append([]string(nil), d.Recurring.DaysOfWeek...)
		if d.Recurring.Until != nil {
			u := *d.Recurring.Until
			v.Until = &u
		}
		c.Recurring = &v
	}
	return c
}
