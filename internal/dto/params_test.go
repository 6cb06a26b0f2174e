package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

func TestEventSearchParams_ToQuery(t *testing.T) {
	p := EventSearchParams{
		Lng:        "-123.12",
		Lat:        "49.28",
		Radius:     "1000",
		Category:   []string{"music,food", " art "},
		EventType:  "inPerson",
		StartAfter: "2026-03-01T00:00:00Z",
		Detail:     []string{"ageRestriction:gte:18"},
		Limit:      "10",
	}
	q, err := p.ToQuery()
	require.NoError(t, err)

	require.NotNil(t, q.Near)
	assert.Equal(t, 1000.0, q.Near.RadiusMeters)
	assert.Equal(t, []string{"music", "food", "art"}, q.Categories)
	assert.Equal(t, 10, q.Limit)
	require.Len(t, q.Details, 1)
	assert.Equal(t, domain.OpGte, q.Details[0].Op)
	assert.Equal(t, 18.0, q.Details[0].Value)
	require.NotNil(t, q.StartAfter)
}

func TestEventSearchParams_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params EventSearchParams
	}{
		{"lng without lat", EventSearchParams{Lng: "1"}},
		{"radius alone", EventSearchParams{Radius: "100"}},
		{"non-numeric lat", EventSearchParams{Lng: "1", Lat: "north"}},
		{"bad date", EventSearchParams{StartAfter: "yesterday"}},
		{"bad limit", EventSearchParams{Limit: "ten"}},
		{"unknown status", EventSearchParams{Status: "archived"}},
		{"detail without type", EventSearchParams{Detail: []string{"ageRestriction:gte:18"}}},
		{"malformed detail", EventSearchParams{EventType: "inPerson", Detail: []string{"ageRestriction"}}},
		{"unknown detail field", EventSearchParams{EventType: "virtual", Detail: []string{"ageRestriction:gte:18"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.params.ToQuery()
			assert.True(t, domain.IsInvalidQueryError(err), "got %v", err)
		})
	}
}

func TestVenueSearchParams_ToQuery(t *testing.T) {
	p := VenueSearchParams{VenueType: "park", City: "Vancouver", Detail: []string{"petsAllowed:eq:true"}}
	q, err := p.ToQuery()
	require.NoError(t, err)
	assert.Nil(t, q.Near)
	require.Len(t, q.Details, 1)
	assert.Equal(t, true, q.Details[0].Value)

	_, err = (&VenueSearchParams{Detail: []string{"petsAllowed:eq:true"}}).ToQuery()
	assert.True(t, domain.IsInvalidQueryError(err))
}

func TestUpdateEventRequest_Apply(t *testing.T) {
	e := &domain.Event{EventType: domain.EventTypeInPerson, Status: domain.EventStatusDraft}

	virtual := domain.EventTypeVirtual
	err := (&UpdateEventRequest{EventType: &virtual}).Apply(e)
	assert.True(t, domain.IsValidationError(err))

	completed := domain.EventStatusCompleted
	err = (&UpdateEventRequest{Status: &completed}).Apply(e)
	assert.True(t, domain.IsValidationError(err))

	published := domain.EventStatusPublished
	title := "Renamed"
	details := domain.EventDetails{Virtual: &domain.VirtualDetails{Platform: "zoom"}}
	require.NoError(t, (&UpdateEventRequest{Title: &title, Status: &published, EventType: &virtual, Details: &details}).Apply(e))
	assert.Equal(t, "Renamed", e.Title)
	assert.Equal(t, domain.EventStatusPublished, e.Status)
	assert.Equal(t, domain.EventTypeVirtual, e.EventType)
}

func TestListParams_Page(t *testing.T) {
	after, limit, err := (&ListParams{}).Page()
	require.NoError(t, err)
	assert.Nil(t, after)
	assert.Equal(t, domain.DefaultPageSize, limit)

	_, _, err = (&ListParams{Cursor: "!!"}).Page()
	assert.True(t, domain.IsInvalidQueryError(err))
}
