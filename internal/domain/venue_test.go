package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validVenue() *Venue {
	return &Venue{
		Name:      "Stanley Park Pavilion",
		VenueType: VenueTypePark,
		Location:  NewPoint(-123.1443, 49.3017),
		Address:   Address{City: "Vancouver", Country: "CA"},
		Capacity:  100,
		Availability: []AvailabilityWindow{
			{Day: "sat", Open: "09:00", Close: "21:00"},
		},
		Details: VenueDetails{Park: &ParkDetails{AreaSqMeters: 4000, PetsAllowed: true}},
	}
}

func TestVenue_Validate(t *testing.T) {
	require.NoError(t, validVenue().Validate())

	v := validVenue()
	v.Availability[0].Close = "08:00"
	assert.True(t, IsValidationError(v.Validate()))

	v = validVenue()
	v.Availability[0].Open = "9am"
	assert.True(t, IsValidationError(v.Validate()))

	v = validVenue()
	v.VenueType = VenueTypeTheater
	assert.True(t, IsValidationError(v.Validate()), "park block on a theater")

	v = validVenue()
	v.VenueType = VenueTypeRestaurant
	v.Details = VenueDetails{}
	assert.True(t, IsValidationError(v.Validate()), "restaurant needs its block")

	v = validVenue()
	v.Contact.Email = "not-an-email"
	assert.True(t, IsValidationError(v.Validate()))
}

func TestVenue_SnapshotChanged(t *testing.T) {
	a := validVenue()
	b := a.Clone()
	b.Amenities = []string{"wifi"}
	assert.False(t, SnapshotChanged(a, b))

	b.Address.City = "Burnaby"
	assert.True(t, SnapshotChanged(a, b))

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := b.Snapshot(at)
	assert.Equal(t, "Burnaby", s.City)
	assert.Equal(t, VenueTypePark, s.VenueType)
	assert.Equal(t, at, s.SyncedAt)
}

func TestVenueDetailPredicate(t *testing.T) {
	p, err := VenueDetailPredicate(VenueTypePark, "petsAllowed", OpEq, "true")
	require.NoError(t, err)

	d := VenueDetails{Park: &ParkDetails{PetsAllowed: true}}
	v, ok := d.Field("petsAllowed")
	require.True(t, ok)
	assert.True(t, p.Matches(v))

	_, err = VenueDetailPredicate(VenueTypePark, "petsAllowed", OpEq, "yes")
	assert.True(t, IsInvalidQueryError(err))

	assert.Equal(t, []string{"areaSqMeters", "coveredAreas", "hasRestrooms", "petsAllowed"}, VenueDetailFields(VenueTypePark))
}

func TestUser_ValidateAndEmail(t *testing.T) {
	u := &User{Email: "Ana@Example.com"}
	require.NoError(t, u.Validate())
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.com "))
	assert.Equal(t, float64(DefaultSearchRadiusMeters), u.SearchRadius())

	u.Email = "nope"
	assert.True(t, IsValidationError(u.Validate()))
}

func TestReview_Validate(t *testing.T) {
	eid, vid := "e", "v"
	assert.NoError(t, (&Review{EventID: &eid, UserID: "u", Rating: 5}).Validate())
	assert.Error(t, (&Review{EventID: &eid, UserID: "u", Rating: 0}).Validate())
	assert.Error(t, (&Review{EventID: &eid, UserID: "u", Rating: 6}).Validate())
	assert.Error(t, (&Review{EventID: &eid, VenueID: &vid, UserID: "u", Rating: 3}).Validate())
	assert.Error(t, (&Review{UserID: "u", Rating: 3}).Validate())
}
