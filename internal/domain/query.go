package domain

import (
	"math"
	"strings"
	"time"
)

// Near is a radius constraint around a point
type Near struct {
	Center       GeoPoint
	RadiusMeters float64
}

// Validate rejects malformed coordinates and radii outside (0, MaxRadiusMeters]
func (n *Near) Validate() error {
	if err := ValidateCoordinates("center", n.Center.Lng(), n.Center.Lat()); err != nil {
		return NewInvalidQueryError("%v", err)
	}
	if math.IsNaN(n.RadiusMeters) || n.RadiusMeters <= 0 || n.RadiusMeters > MaxRadiusMeters {
		return NewInvalidQueryError("radius must be in (0, %v] meters", MaxRadiusMeters)
	}
	return nil
}

// EventQuery composes every discovery constraint on events
type EventQuery struct {
	Near        *Near
	Text        string
	Categories  []string
	EventType   EventType
	Status      EventStatus
	StartAfter  *time.Time
	StartBefore *time.Time
	MinCapacity int
	Details     []DetailPredicate
	After       *Cursor
	Cursor      string
	Limit       int
}

// SortMode is geo when a center is given, else score when there is text, else start time
func (q *EventQuery) SortMode() SortMode {
	switch {
	case q.Near != nil:
		return SortByDistance
	case q.Text != "":
		return SortByScore
	default:
		return SortByStart
	}
}

// Normalize validates the query, resolves the cursor and page size
func (q *EventQuery) Normalize() error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Near != nil {
		if err := q.Near.Validate(); err != nil {
			return err
		}
	}
	if q.EventType != "" && !q.EventType.Valid() {
		return NewInvalidQueryError("unknown eventType %q", q.EventType)
	}
	if len(q.Details) > 0 && q.EventType == "" {
		return NewInvalidQueryError("detail filters require an eventType")
	}
	if q.StartAfter != nil && q.StartBefore != nil && q.StartBefore.Before(*q.StartAfter) {
		return NewInvalidQueryError("date window end is before its start")
	}
	if q.MinCapacity < 0 {
		return NewInvalidQueryError("minCapacity must not be negative")
	}
	limit, err := PageSize(q.Limit)
	if err != nil {
		return err
	}
	q.Limit = limit
	after, err := DecodeCursor(q.Cursor, q.SortMode())
	if err != nil {
		return err
	}
	q.After = after
	return nil
}

// VenueQuery composes every discovery constraint on venues
type VenueQuery struct {
	Near        *Near
	Text        string
	VenueType   VenueType
	City        string
	MinCapacity int
	Details     []DetailPredicate
	After       *Cursor
	Cursor      string
	Limit       int
}

// SortMode is geo, then score with newest venues first on ties, then creation time
func (q *VenueQuery) SortMode() SortMode {
	switch {
	case q.Near != nil:
		return SortByDistance
	case q.Text != "":
		return SortByScore
	default:
		return SortByCreated
	}
}

func (q *VenueQuery) Normalize() error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Near != nil {
		if err := q.Near.Validate(); err != nil {
			return err
		}
	}
	if q.VenueType != "" && !q.VenueType.Valid() {
		return NewInvalidQueryError("unknown venueType %q", q.VenueType)
	}
	if len(q.Details) > 0 && q.VenueType == "" {
		return NewInvalidQueryError("detail filters require a venueType")
	}
	if q.MinCapacity < 0 {
		return NewInvalidQueryError("minCapacity must not be negative")
	}
	limit, err := PageSize(q.Limit)
	if err != nil {
		return err
	}
	q.Limit = limit
	after, err := DecodeCursor(q.Cursor, q.SortMode())
	if err != nil {
		return err
	}
	q.After = after
	return nil
}

// EventHit is a discovery result. Distance is set for geo queries, Score for keyword queries.
type EventHit struct {
	Event    *Event   `json:"event"`
	Distance *float64 `json:"distanceMeters,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// VenueHit is a venue discovery result
type VenueHit struct {
	Venue    *Venue   `json:"venue"`
	Distance *float64 `json:"distanceMeters,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// CursorFor builds the cursor that resumes after h
func (h EventHit) CursorFor(mode SortMode) Cursor {
	c := Cursor{Mode: mode, ID: h.Event.ID}
	switch mode {
	case SortByDistance:
		if h.Distance != nil {
			c.Distance = *h.Distance
		}
	case SortByScore:
		if h.Score != nil {
			c.Score = *h.Score
		}
		c.Time = h.Event.StartDate
	default:
		c.Time = h.Event.StartDate
	}
	return c
}

func (h VenueHit) CursorFor(mode SortMode) Cursor {
	c := Cursor{Mode: mode, ID: h.Venue.ID}
	switch mode {
	case SortByDistance:
		if h.Distance != nil {
			c.Distance = *h.Distance
		}
	case SortByScore:
		if h.Score != nil {
			c.Score = *h.Score
		}
		c.Time = h.Venue.CreatedAt
	default:
		c.Time = h.Venue.CreatedAt
	}
	return c
}

// PageOf trims a limit+1 fetch into a page with a next cursor
func PageOf[T interface{ CursorFor(SortMode) Cursor }](rows []T, limit int, mode SortMode) Page[T] {
	p := Page[T]{Items: rows}
	if len(rows) > limit {
		p.Items = rows[:limit]
		p.HasMore = true
		p.NextCursor = p.Items[limit-1].CursorFor(mode).Encode()
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}
