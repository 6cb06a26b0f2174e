package domain

import "time"

// CheckinMethod is how an attendee was admitted
type CheckinMethod string

const (
	CheckinQRCode    CheckinMethod = "qrCode"
	CheckinMobileApp CheckinMethod = "mobileApp"
	CheckinManual    CheckinMethod = "manual"
)

// Checkin bridges a user and an event. At most one exists per (event, user).
type Checkin struct {
	ID          string          `json:"id"`
	EventID     string          `json:"eventId" validate:"required"`
	UserID      string          `json:"userId" validate:"required"`
	VenueID     *string         `json:"venueId,omitempty"`
	CheckInTime time.Time       `json:"checkInTime"`
	Method      CheckinMethod   `json:"method" validate:"required,oneof=qrCode mobileApp manual"`
	TicketTier  string          `json:"ticketTier" validate:"max=50"`
	Location    *GeoPoint       `json:"location,omitempty"`
	Metadata    CheckinMetadata `json:"metadata"`
	CreatedAt   time.Time       `json:"createdAt"`
	OrphanedAt  *time.Time      `json:"orphanedAt,omitempty"`
}

type CheckinMetadata struct {
	DeviceInfo    string `json:"deviceInfo,omitempty" validate:"max=200"`
	IPAddress     string `json:"ipAddress,omitempty" validate:"omitempty,ip"`
	StaffVerified bool   `json:"staffVerified"`
}

func (c *Checkin) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.Location != nil {
		return c.Location.Validate("location")
	}
	return nil
}

func (c *Checkin) Clone() *Checkin {
	cp := *c
	if c.VenueID != nil {
		id := *c.VenueID
		cp.VenueID = &id
	}
	if c.Location != nil {
		p := *c.Location
		cp.Location = &p
	}
	if c.OrphanedAt != nil {
		t := *c.OrphanedAt
		cp.OrphanedAt = &t
	}
	return &cp
}

// CursorFor resumes a listing after c, ordered by checkin time
func (c *Checkin) CursorFor(SortMode) Cursor {
	return Cursor{Mode: SortByCreated, Time: c.CheckInTime, ID: c.ID}
}
