package domain

import (
	"fmt"
	"time"
)

// BookingState is a step of one booking attempt
type BookingState string

const (
	BookingRequested       BookingState = "requested"
	BookingCapacityChecked BookingState = "capacity_checked"
	BookingReserved        BookingState = "reserved"
	BookingCheckinRecorded BookingState = "checkin_recorded"
	BookingCommitted       BookingState = "committed"
	BookingAborted         BookingState = "aborted"
)

var bookingTransitions = map[BookingState][]BookingState{
	BookingRequested:       {BookingCapacityChecked, BookingAborted},
	BookingCapacityChecked: {BookingReserved, BookingAborted},
	BookingReserved:        {BookingCheckinRecorded, BookingAborted},
	BookingCheckinRecorded: {BookingCommitted, BookingAborted},
}

// CanTransitionTo reports whether next follows s
func (s BookingState) CanTransitionTo(next BookingState) bool {
	for _, n := range bookingTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s BookingState) IsTerminal() bool {
	return s == BookingCommitted || s == BookingAborted
}

// BookingAttempt tracks the state of a single transactional attempt
type BookingAttempt struct {
	State BookingState
	Err   error
}

// NewBookingAttempt starts in Requested
func NewBookingAttempt() *BookingAttempt {
	return &BookingAttempt{State: BookingRequested}
}

// Advance moves to next or fails on an illegal transition
func (a *BookingAttempt) Advance(next BookingState) error {
	if !a.State.CanTransitionTo(next) {
		return fmt.Errorf("illegal booking transition %s -> %s", a.State, next)
	}
	a.State = next
	return nil
}

// Abort records the cause and moves to Aborted from any non-terminal state
func (a *BookingAttempt) Abort(err error) {
	if a.State.IsTerminal() {
		return
	}
	a.State = BookingAborted
	a.Err = err
}

// BookingRequest asks for one ticket of a tier plus a checkin for the user
type BookingRequest struct {
	EventID  string          `json:"eventId" validate:"required"`
	UserID   string          `json:"userId" validate:"required"`
	Tier     string          `json:"tier" validate:"required,max=50"`
	Method   CheckinMethod   `json:"method" validate:"omitempty,oneof=qrCode mobileApp manual"`
	Metadata CheckinMetadata `json:"metadata"`
}

func (r *BookingRequest) Validate() error {
	return validateStruct(r)
}

// BookingResult is returned after a committed booking
type BookingResult struct {
	CheckinID string    `json:"checkinId"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Tier      string    `json:"tier"`
	Price     float64   `json:"price"`
	Available int       `json:"available"`
	Sold      int       `json:"sold"`
	Attempts  int       `json:"attempts"`
	BookedAt  time.Time `json:"bookedAt"`
}
