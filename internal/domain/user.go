package domain

import (
	"strings"
	"time"
)

// DefaultSearchRadiusMeters is used for "near me" when a profile sets no radius
const DefaultSearchRadiusMeters = 10_000

// User is an attendee or organizer
type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email" validate:"required,email,max=254"`
	Profile   UserProfile `json:"profile"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	LastLogin *time.Time  `json:"lastLogin,omitempty"`
}

type UserProfile struct {
	FirstName          string    `json:"firstName" validate:"max=100"`
	LastName           string    `json:"lastName" validate:"max=100"`
	Interests          []string  `json:"interests" validate:"max=20,dive,required,max=100"`
	PreferredLocation  *GeoPoint `json:"preferredLocation,omitempty"`
	SearchRadiusMeters float64   `json:"searchRadiusMeters" validate:"gte=0"`
}

// NormalizeEmail lowercases and trims an address; uniqueness is case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() error {
	if err := validateStruct(u); err != nil {
		return err
	}
	if u.Profile.PreferredLocation != nil {
		if err := u.Profile.PreferredLocation.Validate("profile.preferredLocation"); err != nil {
			return err
		}
	}
	if u.Profile.SearchRadiusMeters > MaxRadiusMeters {
		return NewValidationError("profile.searchRadiusMeters", "must be at most %v", MaxRadiusMeters)
	}
	return nil
}

// SearchRadius returns the profile radius or the default
func (u *User) SearchRadius() float64 {
	if u.Profile.SearchRadiusMeters > 0 {
		return u.Profile.SearchRadiusMeters
	}
	return DefaultSearchRadiusMeters
}

func (u *User) Clone() *User {
	c := *u
	c.Profile.Interests = append([]string(nil), u.Profile.Interests...)
	if u.Profile.PreferredLocation != nil {
		p := *u.Profile.PreferredLocation
		c.Profile.PreferredLocation = &p
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// CursorFor resumes a listing after u
func (u *User) CursorFor(SortMode) Cursor {
	return Cursor{Mode: SortByCreated, Time: u.CreatedAt, ID: u.ID}
}
