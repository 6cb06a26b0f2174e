package dto

import "github.com/prohmpiriya/eventhub/internal/domain"

// BookingRequest is the body of POST /events/:id/bookings
type BookingRequest struct {
	UserID   string                 `json:"user_id"`
	Tier     string                 `json:"tier"`
	Method   domain.CheckinMethod   `json:"method"`
	Metadata domain.CheckinMetadata `json:"metadata"`
}

// ToDomain binds the body to the event named in the path
func (r *BookingRequest) ToDomain(eventID string) *domain.BookingRequest {
	return &domain.BookingRequest{
		EventID:  eventID,
		UserID:   r.UserID,
		Tier:     r.Tier,
		Method:   r.Method,
		Metadata: r.Metadata,
	}
}
