package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_EncodeDecode(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := Cursor{Mode: SortByScore, Score: 0.75, Time: start, ID: "e-1"}

	got, err := DecodeCursor(c.Encode(), SortByScore)
	require.NoError(t, err)
	assert.Equal(t, 0.75, got.Score)
	assert.True(t, start.Equal(got.Time))
	assert.Equal(t, "e-1", got.ID)
}

func TestDecodeCursor_Rejects(t *testing.T) {
	none, err := DecodeCursor("", SortByStart)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = DecodeCursor("%%%", SortByStart)
	assert.True(t, IsInvalidQueryError(err))

	_, err = DecodeCursor("bm90LWpzb24", SortByStart)
	assert.True(t, IsInvalidQueryError(err))

	geo := Cursor{Mode: SortByDistance, Distance: 10, ID: "x"}.Encode()
	_, err = DecodeCursor(geo, SortByStart)
	assert.True(t, IsInvalidQueryError(err))
}

func TestPageSize(t *testing.T) {
	n, err := PageSize(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, n)

	n, err = PageSize(500)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, n)

	_, err = PageSize(-1)
	assert.True(t, IsInvalidQueryError(err))
}

func TestPageOf(t *testing.T) {
	d1, d2, d3 := 10.0, 20.0, 30.0
	rows := []EventHit{
		{Event: &Event{ID: "a"}, Distance: &d1},
		{Event: &Event{ID: "b"}, Distance: &d2},
		{Event: &Event{ID: "c"}, Distance: &d3},
	}

	p := PageOf(rows, 2, SortByDistance)
	assert.Len(t, p.Items, 2)
	assert.True(t, p.HasMore)

	next, err := DecodeCursor(p.NextCursor, SortByDistance)
	require.NoError(t, err)
	assert.Equal(t, "b", next.ID)
	assert.Equal(t, 20.0, next.Distance)

	last := PageOf(rows[2:], 2, SortByDistance)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)
}

func TestEventQuery_Normalize(t *testing.T) {
	q := &EventQuery{Near: &Near{Center: NewPoint(-123.1207, 49.2827), RadiusMeters: 1000}}
	require.NoError(t, q.Normalize())
	assert.Equal(t, DefaultPageSize, q.Limit)
	assert.Equal(t, SortByDistance, q.SortMode())

	bad := []*EventQuery{
		{Near: &Near{Center: NewPoint(-123, 49), RadiusMeters: 0}},
		{Near: &Near{Center: NewPoint(-123, 49), RadiusMeters: MaxRadiusMeters + 1}},
		{Near: &Near{Center: NewPoint(-200, 49), RadiusMeters: 10}},
		{EventType: "gala"},
		{Details: []DetailPredicate{{Field: "maxViewers"}}},
		{Cursor: "garbage!"},
	}
	for _, b := range bad {
		assert.True(t, IsInvalidQueryError(b.Normalize()), "%+v", b)
	}
}
