package dto

import (
	"github.com/prohmpiriya/eventhub/internal/domain"
)

// CreateVenueRequest represents the request to create a new venue
type CreateVenueRequest struct {
	Name         string                      `json:"name"`
	VenueType    domain.VenueType            `json:"venueType"`
	Location     domain.GeoPoint             `json:"location"`
	Address      domain.Address              `json:"address"`
	Capacity     int                         `json:"capacity"`
	Amenities    []string                    `json:"amenities"`
	Contact      domain.Contact              `json:"contact"`
	Pricing      domain.Pricing              `json:"pricing"`
	Availability []domain.AvailabilityWindow `json:"availability"`
	Details      domain.VenueDetails         `json:"details"`
}

func (r *CreateVenueRequest) ToVenue() *domain.Venue {
	return &domain.Venue{
		Name:         r.Name,
		VenueType:    r.VenueType,
		Location:     r.Location.Normalize(),
		Address:      r.Address,
		Capacity:     r.Capacity,
		Amenities:    r.Amenities,
		Contact:      r.Contact,
		Pricing:      r.Pricing,
		Availability: r.Availability,
		Details:      r.Details,
	}
}

// UpdateVenueRequest is a partial update. Nil fields are left unchanged.
type UpdateVenueRequest struct {
	Name         *string                     `json:"name"`
	VenueType    *domain.VenueType           `json:"venueType"`
	Location     *domain.GeoPoint            `json:"location"`
	Address      *domain.Address             `json:"address"`
	Capacity     *int                        `json:"capacity"`
	Amenities    []string                    `json:"amenities"`
	Contact      *domain.Contact             `json:"contact"`
	Pricing      *domain.Pricing             `json:"pricing"`
	Availability []domain.AvailabilityWindow `json:"availability"`
	Details      *domain.VenueDetails        `json:"details"`
}

// Apply merges the patch into v. A type change must carry its matching detail block.
func (r *UpdateVenueRequest) Apply(v *domain.Venue) error {
	if r.VenueType != nil && *r.VenueType != v.VenueType && r.Details == nil {
		return domain.NewValidationError("details", "changing venueType requires a %s detail block", *r.VenueType)
	}
	if r.Name != nil {
		v.Name = *r.Name
	}
	if r.VenueType != nil {
		v.VenueType = *r.VenueType
	}
	if r.Details != nil {
		v.Details = *r.Details
	}
	if r.Location != nil {
		v.Location = r.Location.Normalize()
	}
	if r.Address != nil {
		v.Address = *r.Address
	}
	if r.Capacity != nil {
		v.Capacity = *r.Capacity
	}
	if r.Amenities != nil {
		v.Amenities = r.Amenities
	}
	if r.Contact != nil {
		v.Contact = *r.Contact
	}
	if r.Pricing != nil {
		v.Pricing = *r.Pricing
	}
	if r.Availability != nil {
		v.Availability = r.Availability
	}
	return nil
}

// VenueSearchParams are the query-string parameters of venue discovery
type VenueSearchParams struct {
	Lng         string   `form:"lng"`
	Lat         string   `form:"lat"`
	Radius      string   `form:"radius"`
	Q           string   `form:"q"`
	VenueType   string   `form:"venueType"`
	City        string   `form:"city"`
	MinCapacity string   `form:"minCapacity"`
	Detail      []string `form:"detail"`
	Cursor      string   `form:"cursor"`
	Limit       string   `form:"limit"`
}

// ToQuery parses the parameters. Malformed input is an InvalidQueryError.
func (p *VenueSearchParams) ToQuery() (*domain.VenueQuery, error) {
	q := &domain.VenueQuery{
		Text:      p.Q,
		VenueType: domain.VenueType(p.VenueType),
		City:      p.City,
		Cursor:    p.Cursor,
	}
	var err error
	if q.Near, err = parseNear(p.Lng, p.Lat, p.Radius); err != nil {
		return nil, err
	}
	if q.MinCapacity, err = parseInt("minCapacity", p.MinCapacity); err != nil {
		return nil, err
	}
	if q.Limit, err = parseInt("limit", p.Limit); err != nil {
		return nil, err
	}
	for _, raw := range p.Detail {
		field, op, value, err := splitDetail(raw)
		if err != nil {
			return nil, err
		}
		if q.VenueType == "" {
			return nil, domain.NewInvalidQueryError("detail filters require a venueType")
		}
		pred, err := domain.VenueDetailPredicate(q.VenueType, field, op, value)
		if err != nil {
			return nil, err
		}
		q.Details = append(q.Details, pred)
	}
	return q, nil
}
