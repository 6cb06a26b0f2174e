package repository

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var vancouver = domain.NewPoint(-123.1207, 49.2827)

func newVenue(name string, loc domain.GeoPoint) *domain.Venue {
	return &domain.Venue{
		ID:        uuid.NewString(),
		Name:      name,
		VenueType: domain.VenueTypePark,
		Location:  loc,
		Address:   domain.Address{City: "Vancouver"},
		Capacity:  100,
		Amenities: []string{"restrooms"},
		Details:   domain.VenueDetails{Park: &domain.ParkDetails{AreaSqMeters: 5000, HasRestrooms: true}},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func newEvent(title string, loc domain.GeoPoint, start time.Time) *domain.Event {
	return &domain.Event{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  "An evening of " + title,
		Category:     "music",
		EventType:    domain.EventTypeInPerson,
		Location:     loc,
		StartDate:    start,
		EndDate:      start.Add(3 * time.Hour),
		MaxAttendees: 100,
		Price:        25,
		Currency:     "CAD",
		Status:       domain.EventStatusPublished,
		Tags:         []string{"live"},
		Details:      domain.EventDetails{InPerson: &domain.InPersonDetails{DoorsOpenMinutes: 30, AgeRestriction: 19}},
		TicketTiers: []domain.TicketTier{
			{Name: "GA", Price: 25, Allocation: 2, Available: 2},
		},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func newUser(email string) *domain.User {
	return &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Profile:   domain.UserProfile{FirstName: "Ada", Interests: []string{"music"}},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func newCheckin(eventID, userID string) *domain.Checkin {
	return &domain.Checkin{
		ID:          uuid.NewString(),
		EventID:     eventID,
		UserID:      userID,
		CheckInTime: baseTime,
		Method:      domain.CheckinQRCode,
		TicketTier:  "GA",
		CreatedAt:   baseTime,
	}
}

func newReview(target domain.ReviewTarget, targetID, userID string, rating int) *domain.Review {
	r := &domain.Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		Rating:    rating,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	id := targetID
	if target == domain.ReviewTargetEvent {
		r.EventID = &id
	} else {
		r.VenueID = &id
	}
	return r
}

// offset moves p north and east by the given meters
func offset(p domain.GeoPoint, north, east float64) domain.GeoPoint {
	const metersPerDegree = 111_195.0
	lat := p.Lat() + north/metersPerDegree
	lng := p.Lng() + east/(metersPerDegree*cosDeg(p.Lat()))
	return domain.NewPoint(lng, lat)
}

func cosDeg(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}
