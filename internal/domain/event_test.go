package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() *Event {
	start := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)
	return &Event{
		Title:     "Harbour Jazz Night",
		Category:  "music",
		EventType: EventTypeInPerson,
		Location:  NewPoint(-123.1207, 49.2827),
		StartDate: start,
		EndDate:   start.Add(3 * time.Hour),
		Status:    EventStatusDraft,
		Price:     25,
		Currency:  "CAD",
		TicketTiers: []TicketTier{
			{Name: "GA", Price: 25, Allocation: 2, Available: 2},
		},
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *Event)
		field  string
	}{
		{"valid", func(e *Event) {}, ""},
		{"missing title", func(e *Event) { e.Title = "" }, "title"},
		{"unknown type", func(e *Event) { e.EventType = "concert" }, "eventType"},
		{"longitude out of range", func(e *Event) { e.Location = NewPoint(181, 0) }, "location"},
		{"latitude out of range", func(e *Event) { e.Location = NewPoint(0, -91) }, "location"},
		{"end before start", func(e *Event) { e.EndDate = e.StartDate.Add(-time.Minute) }, "endDate"},
		{"free with price", func(e *Event) { e.IsFree = true }, "price"},
		{"attendees over max", func(e *Event) { e.MaxAttendees = 1; e.CurrentAttendees = 2 }, "currentAttendees"},
		{"duplicate tier", func(e *Event) { e.TicketTiers = append(e.TicketTiers, e.TicketTiers[0]) }, "ticketTiers[1].name"},
		{"tier counts off", func(e *Event) { e.TicketTiers[0].Sold = 1 }, "ticketTiers[0]"},
		{"negative allocation", func(e *Event) { e.TicketTiers[0].Allocation = -1 }, "ticketTiers[0].allocation"},
		{"hybrid without block", func(e *Event) { e.EventType = EventTypeHybrid }, "details"},
		{"hybrid with virtual block", func(e *Event) {
			e.EventType = EventTypeHybrid
			e.Details = EventDetails{Virtual: &VirtualDetails{Platform: "zoom"}}
		}, "details"},
		{"hybrid block missing platform", func(e *Event) {
			e.EventType = EventTypeHybrid
			e.Details = EventDetails{Hybrid: &HybridDetails{}}
		}, "details.platform"},
		{"two blocks", func(e *Event) {
			e.Details = EventDetails{InPerson: &InPersonDetails{}, Virtual: &VirtualDetails{Platform: "zoom"}}
		}, "details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			err := e.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestEvent_HybridValid(t *testing.T) {
	e := validEvent()
	e.EventType = EventTypeHybrid
	e.Details = EventDetails{Hybrid: &HybridDetails{Platform: "zoom", InPersonCapacity: 50, VirtualCapacity: 500}}
	assert.NoError(t, e.Validate())
}

func TestEventStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, EventStatusDraft.CanTransitionTo(EventStatusPublished))
	assert.True(t, EventStatusDraft.CanTransitionTo(EventStatusCancelled))
	assert.True(t, EventStatusPublished.CanTransitionTo(EventStatusCompleted))
	assert.True(t, EventStatusPublished.CanTransitionTo(EventStatusCancelled))
	assert.False(t, EventStatusDraft.CanTransitionTo(EventStatusCompleted))
	assert.False(t, EventStatusCancelled.CanTransitionTo(EventStatusPublished))
	assert.False(t, EventStatusCompleted.CanTransitionTo(EventStatusDraft))
}

func TestEventDetails_VariantRoundTrip(t *testing.T) {
	d := EventDetails{Virtual: &VirtualDetails{Platform: "youtube", MaxViewers: 1000}}
	raw, err := d.MarshalVariant()
	require.NoError(t, err)
	assert.JSONEq(t, `{"platform":"youtube","maxViewers":1000}`, string(raw))

	got, err := UnmarshalEventDetails(EventTypeVirtual, raw)
	require.NoError(t, err)
	require.NotNil(t, got.Virtual)
	assert.Equal(t, 1000, got.Virtual.MaxViewers)

	empty, err := UnmarshalEventDetails(EventTypeInPerson, []byte("{}"))
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestEventDetailPredicate(t *testing.T) {
	p, err := EventDetailPredicate(EventTypeVirtual, "maxViewers", OpGte, "500")
	require.NoError(t, err)
	assert.Equal(t, 500.0, p.Value)

	d := EventDetails{Virtual: &VirtualDetails{Platform: "zoom", MaxViewers: 800}}
	v, ok := d.Field("maxViewers")
	require.True(t, ok)
	assert.True(t, p.Matches(v))

	_, err = EventDetailPredicate(EventTypeVirtual, "inPersonCapacity", OpGt, "1")
	assert.True(t, IsInvalidQueryError(err))

	_, err = EventDetailPredicate(EventTypeVirtual, "platform", OpGt, "zoom")
	assert.True(t, IsInvalidQueryError(err))

	_, err = EventDetailPredicate(EventTypeVirtual, "maxViewers", OpGt, "lots")
	assert.True(t, IsInvalidQueryError(err))

	_, err = EventDetailPredicate("gala", "maxViewers", OpGt, "1")
	assert.True(t, IsInvalidQueryError(err))
}

func TestEvent_CloneIsDeep(t *testing.T) {
	e := validEvent()
	vid := "venue-1"
	e.VenueID = &vid
	e.Tags = []string{"jazz"}

	c := e.Clone()
	c.TicketTiers[0].Sold = 99
	c.Tags[0] = "rock"
	*c.VenueID = "venue-2"

	assert.Equal(t, 0, e.TicketTiers[0].Sold)
	assert.Equal(t, "jazz", e.Tags[0])
	assert.Equal(t, "venue-1", *e.VenueID)
}

func TestAttendanceRateAndAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AttendanceRate(5, 0))
	assert.Equal(t, 50.0, AttendanceRate(1, 2))
	assert.Equal(t, 33.33, AttendanceRate(1, 3))

	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 4.0, AverageRating([]int{5, 3}))
	assert.Equal(t, 4.3, AverageRating([]int{5, 4, 4}))
}

func TestEvent_TicketsSoldAndRevenue(t *testing.T) {
	e := validEvent()
	e.TicketTiers = []TicketTier{
		{Name: "GA", Price: 25, Allocation: 10, Available: 7, Sold: 3},
		{Name: "VIP", Price: 100.5, Allocation: 2, Available: 0, Sold: 2},
	}
	assert.Equal(t, 5, e.TicketsSold())
	assert.Equal(t, 276.0, e.Revenue())
}
