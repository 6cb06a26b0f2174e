package dto

import "github.com/prohmpiriya/eventhub/internal/domain"

// CreateUserRequest represents the request to register a user
type CreateUserRequest struct {
	Email   string             `json:"email"`
	Profile domain.UserProfile `json:"profile"`
}

func (r *CreateUserRequest) ToUser() *domain.User {
	u := &domain.User{Email: r.Email, Profile: r.Profile}
	if p := u.Profile.PreferredLocation; p != nil {
		n := p.Normalize()
		u.Profile.PreferredLocation = &n
	}
	return u
}

// UpdateUserRequest is a partial update
type UpdateUserRequest struct {
	Email              *string          `json:"email"`
	FirstName          *string          `json:"firstName"`
	LastName           *string          `json:"lastName"`
	Interests          []string         `json:"interests"`
	PreferredLocation  *domain.GeoPoint `json:"preferredLocation"`
	SearchRadiusMeters *float64         `json:"searchRadiusMeters"`
}

func (r *UpdateUserRequest) Apply(u *domain.User) {
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.FirstName != nil {
		u.Profile.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		u.Profile.LastName = *r.LastName
	}
	if r.Interests != nil {
		u.Profile.Interests = r.Interests
	}
	if r.PreferredLocation != nil {
		p := r.PreferredLocation.Normalize()
		u.Profile.PreferredLocation = &p
	}
	if r.SearchRadiusMeters != nil {
		u.Profile.SearchRadiusMeters = *r.SearchRadiusMeters
	}
}

// ListParams pages a listing by cursor
type ListParams struct {
	Cursor string `form:"cursor"`
	Limit  string `form:"limit"`
}

// Page resolves the cursor and page size for a created-ordered listing
func (p *ListParams) Page() (*domain.Cursor, int, error) {
	n, err := parseInt("limit", p.Limit)
	if err != nil {
		return nil, 0, err
	}
	limit, err := domain.PageSize(n)
	if err != nil {
		return nil, 0, err
	}
	after, err := domain.DecodeCursor(p.Cursor, domain.SortByCreated)
	if err != nil {
		return nil, 0, err
	}
	return after, limit, nil
}
