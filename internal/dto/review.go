package dto

import "github.com/prohmpiriya/eventhub/internal/domain"

// CreateReviewRequest rates exactly one of an event or a venue
type CreateReviewRequest struct {
	EventID *string `json:"eventId"`
	VenueID *string `json:"venueId"`
	UserID  string  `json:"userId"`
	Rating  int     `json:"rating"`
	Comment string  `json:"comment"`
}

func (r *CreateReviewRequest) ToReview() *domain.Review {
	return &domain.Review{
		EventID: r.EventID,
		VenueID: r.VenueID,
		UserID:  r.UserID,
		Rating:  r.Rating,
		Comment: r.Comment,
	}
}

// UpdateReviewRequest may change only the rating and the comment
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (r *UpdateReviewRequest) Apply(rv *domain.Review) {
	if r.Rating != nil {
		rv.Rating = *r.Rating
	}
	if r.Comment != nil {
		rv.Comment = *r.Comment
	}
}
