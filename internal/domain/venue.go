package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// VenueType discriminates the venue detail variant
type VenueType string

const (
	VenueTypeConferenceCenter VenueType = "conferenceCenter"
	VenueTypePark             VenueType = "park"
	VenueTypeRestaurant       VenueType = "restaurant"
	VenueTypeVirtualSpace     VenueType = "virtualSpace"
	VenueTypeStadium          VenueType = "stadium"
	VenueTypeTheater          VenueType = "theater"
)

// Valid reports whether t is a known venue type
func (t VenueType) Valid() bool {
	_, ok := venueDetailSchemas[t]
	return ok
}

// Venue is a place that hosts events
type Venue struct {
	ID           string               `json:"id"`
	Name         string               `json:"name" validate:"required,max=200"`
	VenueType    VenueType            `json:"venueType" validate:"required,oneof=conferenceCenter park restaurant virtualSpace stadium theater"`
	Location     GeoPoint             `json:"location"`
	Address      Address              `json:"address"`
	Capacity     int                  `json:"capacity" validate:"gte=0"`
	Amenities    []string             `json:"amenities" validate:"max=50,dive,required,max=50"`
	Contact      Contact              `json:"contact"`
	Pricing      Pricing              `json:"pricing"`
	Availability []AvailabilityWindow `json:"availability" validate:"max=21,dive"`
	Rating       float64              `json:"rating"`
	ReviewCount  int                  `json:"reviewCount"`
	Details      VenueDetails         `json:"details" validate:"-"`
	Stats        VenueStats           `json:"stats"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

type Address struct {
	Street     string `json:"street" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

type Contact struct {
	Phone   string `json:"phone,omitempty" validate:"max=40"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Website string `json:"website,omitempty" validate:"omitempty,url"`
}

type Pricing struct {
	HourlyRate float64 `json:"hourlyRate" validate:"gte=0"`
	DailyRate  float64 `json:"dailyRate" validate:"gte=0"`
	Currency   string  `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// AvailabilityWindow is a weekly opening slot, times as HH:MM
type AvailabilityWindow struct {
	Day   string `json:"day" validate:"required,oneof=mon tue wed thu fri sat sun"`
	Open  string `json:"open" validate:"required,datetime=15:04"`
	Close string `json:"close" validate:"required,datetime=15:04"`
}

// VenueStats are hosting counters owned by the statistics maintainer
type VenueStats struct {
	EventsHosted   int        `json:"eventsHosted"`
	UpcomingEvents int        `json:"upcomingEvents"`
	TotalCheckins  int        `json:"totalCheckins"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`
}

// Validate checks tags, coordinates, windows and the detail variant
func (v *Venue) Validate() error {
	if err := validateStruct(v); err != nil {
		return err
	}
	if err := v.Location.Validate("location"); err != nil {
		return err
	}
	for i, w := range v.Availability {
		// HH:MM compares lexically
		if w.Close <= w.Open {
			return NewValidationError(fmt.Sprintf("availability[%d].close", i), "must be after open")
		}
	}
	return v.Details.Validate(v.VenueType)
}

// Snapshot returns the event-side cached copy of this venue
func (v *Venue) Snapshot(at time.Time) *VenueSnapshot {
	return &VenueSnapshot{
		Name:      v.Name,
		City:      v.Address.City,
		Capacity:  v.Capacity,
		VenueType: v.VenueType,
		SyncedAt:  at,
	}
}

// SnapshotChanged reports whether an update touches fields cached on events
func SnapshotChanged(before, after *Venue) bool {
	return before.Name != after.Name ||
		before.Address.City != after.Address.City ||
		before.Capacity != after.Capacity ||
		before.VenueType != after.VenueType
}

// Clone returns a deep copy
func (v *Venue) Clone() *Venue {
	c := *v
	c.Amenities = append([]string(nil), v.Amenities...)
	c.Availability = append([]AvailabilityWindow(nil), v.Availability...)
	c.Details = v.Details.clone()
	if v.Stats.LastUpdated != nil {
		t := *v.Stats.LastUpdated
		c.Stats.LastUpdated = &t
	}
	return &c
}

type ConferenceCenterDetails struct {
	MeetingRooms      int  `json:"meetingRooms" validate:"gte=0"`
	MaxRoomCapacity   int  `json:"maxRoomCapacity" validate:"gte=0"`
	HasAVEquipment    bool `json:"hasAvEquipment"`
	CateringAvailable bool `json:"cateringAvailable"`
}

type ParkDetails struct {
	AreaSqMeters float64 `json:"areaSqMeters" validate:"gte=0"`
	HasRestrooms bool    `json:"hasRestrooms"`
	PetsAllowed  bool    `json:"petsAllowed"`
	CoveredAreas int     `json:"coveredAreas" validate:"gte=0"`
}

type RestaurantDetails struct {
	Cuisine         string `json:"cuisine" validate:"required,max=100"`
	SeatingCapacity int    `json:"seatingCapacity" validate:"gte=0"`
	PrivateRooms    int    `json:"privateRooms" validate:"gte=0"`
	ServesAlcohol   bool   `json:"servesAlcohol"`
}

type VirtualSpaceDetails struct {
	Platform           string `json:"platform" validate:"required,max=100"`
	MaxConcurrentUsers int    `json:"maxConcurrentUsers" validate:"gte=0"`
	SupportsBreakouts  bool   `json:"supportsBreakouts"`
}

type StadiumDetails struct {
	SeatedCapacity   int  `json:"seatedCapacity" validate:"gte=0"`
	StandingCapacity int  `json:"standingCapacity" validate:"gte=0"`
	Covered          bool `json:"covered"`
	Sections         int  `json:"sections" validate:"gte=0"`
}

type TheaterDetails struct {
	Seats        int    `json:"seats" validate:"gte=0"`
	StageType    string `json:"stageType" validate:"omitempty,oneof=proscenium thrust arena blackBox"`
	Balconies    int    `json:"balconies" validate:"gte=0"`
	OrchestraPit bool   `json:"orchestraPit"`
}

// VenueDetails is a one-of: at most the member matching the venue type may be set
type VenueDetails struct {
	ConferenceCenter *ConferenceCenterDetails `json:"conferenceCenter,omitempty"`
	Park             *ParkDetails             `json:"park,omitempty"`
	Restaurant       *RestaurantDetails       `json:"restaurant,omitempty"`
	VirtualSpace     *VirtualSpaceDetails     `json:"virtualSpace,omitempty"`
	Stadium          *StadiumDetails          `json:"stadium,omitempty"`
	Theater          *TheaterDetails          `json:"theater,omitempty"`
}

var venueDetailSchemas = map[VenueType]detailSchema{
	VenueTypeConferenceCenter: {
		"meetingRooms":      KindNumber,
		"maxRoomCapacity":   KindNumber,
		"hasAvEquipment":    KindBool,
		"cateringAvailable": KindBool,
	},
	VenueTypePark: {
		"areaSqMeters": KindNumber,
		"hasRestrooms": KindBool,
		"petsAllowed":  KindBool,
		"coveredAreas": KindNumber,
	},
	VenueTypeRestaurant: {
		"cuisine":         KindString,
		"seatingCapacity": KindNumber,
		"privateRooms":    KindNumber,
		"servesAlcohol":   KindBool,
	},
	VenueTypeVirtualSpace: {
		"platform":           KindString,
		"maxConcurrentUsers": KindNumber,
		"supportsBreakouts":  KindBool,
	},
	VenueTypeStadium: {
		"seatedCapacity":   KindNumber,
		"standingCapacity": KindNumber,
		"covered":          KindBool,
		"sections":         KindNumber,
	},
	VenueTypeTheater: {
		"seats":        KindNumber,
		"stageType":    KindString,
		"balconies":    KindNumber,
		"orchestraPit": KindBool,
	},
}

// VenueDetailPredicate validates a filter on a type-specific venue field
func VenueDetailPredicate(t VenueType, field string, op DetailOp, raw string) (DetailPredicate, error) {
	schema, ok := venueDetailSchemas[t]
	if !ok {
		return DetailPredicate{}, NewInvalidQueryError("unknown venueType %q", t)
	}
	return schema.predicate(string(t), field, op, raw)
}

// VenueDetailFields lists the filterable fields of a venue type
func VenueDetailFields(t VenueType) []string {
	return venueDetailSchemas[t].fields()
}

func (d VenueDetails) Kind() (VenueType, int) {
	var kind VenueType
	n := 0
	if d.ConferenceCenter != nil {
		kind, n = VenueTypeConferenceCenter, n+1
	}
	if d.Park != nil {
		kind, n = VenueTypePark, n+1
	}
	if d.Restaurant != nil {
		kind, n = VenueTypeRestaurant, n+1
	}
	if d.VirtualSpace != nil {
		kind, n = VenueTypeVirtualSpace, n+1
	}
	if d.Stadium != nil {
		kind, n = VenueTypeStadium, n+1
	}
	if d.Theater != nil {
		kind, n = VenueTypeTheater, n+1
	}
	return kind, n
}

func (d VenueDetails) IsZero() bool {
	_, n := d.Kind()
	return n == 0
}

// Validate accepts no block or a block matching t. Restaurants and virtual
// spaces have required detail fields, so their block is mandatory.
func (d VenueDetails) Validate(t VenueType) error {
	kind, n := d.Kind()
	switch {
	case n > 1:
		return NewValidationError("details", "exactly one detail block may be set")
	case n == 0 && (t == VenueTypeRestaurant || t == VenueTypeVirtualSpace):
		return NewValidationError("details", "%s venue requires a %s detail block", t, t)
	case n == 0:
		return nil
	case kind != t:
		return NewValidationError("details", "detail block %s does not match venueType %s", kind, t)
	}
	return detailError(validateStruct(d.Variant()))
}

func (d VenueDetails) Variant() interface{} {
	switch {
	case d.ConferenceCenter != nil:
		return d.ConferenceCenter
	case d.Park != nil:
		return d.Park
	case d.Restaurant != nil:
		return d.Restaurant
	case d.VirtualSpace != nil:
		return d.VirtualSpace
	case d.Stadium != nil:
		return d.Stadium
	case d.Theater != nil:
		return d.Theater
	}
	return nil
}

func (d VenueDetails) Field(name string) (interface{}, bool) {
	v := d.Variant()
	if v == nil {
		return nil, false
	}
	val, ok := decodeDetailMap(v)[name]
	return val, ok
}

func (d VenueDetails) MarshalVariant() ([]byte, error) {
	v := d.Variant()
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// UnmarshalVenueDetails decodes a stored variant. An empty object yields no block.
func UnmarshalVenueDetails(t VenueType, raw []byte) (VenueDetails, error) {
	var d VenueDetails
	if len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		return d, nil
	}
	var target interface{}
	switch t {
	case VenueTypeConferenceCenter:
		d.ConferenceCenter = &ConferenceCenterDetails{}
		target = d.ConferenceCenter
	case VenueTypePark:
		d.Park = &ParkDetails{}
		target = d.Park
	case VenueTypeRestaurant:
		d.Restaurant = &RestaurantDetails{}
		target = d.Restaurant
	case VenueTypeVirtualSpace:
		d.VirtualSpace = &VirtualSpaceDetails{}
		target = d.VirtualSpace
	case VenueTypeStadium:
		d.Stadium = &StadiumDetails{}
		target = d.Stadium
	case VenueTypeTheater:
		d.Theater = &TheaterDetails{}
		target = d.Theater
	default:
		return d, fmt.Errorf("unknown venue type %q", t)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return VenueDetails{}, fmt.Errorf("decode %s details: %w", t, err)
	}
	return d, nil
}

func (d VenueDetails) clone() VenueDetails {
	var c VenueDetails
	if d.ConferenceCenter != nil {
		v := *d.ConferenceCenter
		c.ConferenceCenter = &v
	}
	if d.Park != nil {
		v := *d.Park
		c.Park = &v
	}
	if d.Restaurant != nil {
		v := *d.Restaurant
		c.Restaurant = &v
	}
	if d.VirtualSpace != nil {
		v := *d.VirtualSpace
		c.VirtualSpace = &v
	}
	if d.Stadium != nil {
		v := *d.Stadium
		c.Stadium = &v
	}
	if d.Theater != nil {
		v := *d.Theater
		c.Theater = &v
	}
	return c
}
