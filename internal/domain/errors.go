package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrFlightNotFound  = errors.New("flight not found")
	ErrSeatNotFound    = errors.New("booked seat not found")
)

var (
	ErrFlightUnavailable    = errors.New("requested seats are already booked")
	ErrAlreadyCanceled      = errors.New("booking is already canceled")
	ErrAlreadyCheckedIn     = errors.New("some passengers of the booking have already checked in")
	ErrPassengerCountChange = errors.New("passenger additions or removals are not allowed")
	ErrNotTicketed          = errors.New("booking has not been ticketed")
)

// ErrSeatAssignmentMissing means the inventory confirmed a booking without
// returning one of the requested seats.
var ErrSeatAssignmentMissing = errors.New("inventory did not return a requested seat")

// CheckInValidationError points at the stored passenger whose check-in
// details are missing or do not match the booking.
type CheckInValidationError struct {
	Index int
}

func (e *CheckInValidationError) Error() string {
	return fmt.Sprintf("check-in details of passenger %d do not match the booking", e.Index)
}

type PassengerAlreadyCheckedInError struct {
	Index int
}

func (e *PassengerAlreadyCheckedInError) Error() string {
	return fmt.Sprintf("passenger %d has already checked in", e.Index)
}

// SeatReleaseError is returned by cancel when the booking was canceled but the
// inventory failed to release its seats. The seats need manual reconciliation.
type SeatReleaseError struct {
	BookingID string
	SeatIDs   []string
	Err       error
}

func (e *SeatReleaseError) Error() string {
	return fmt.Sprintf("booking %s canceled but seats %v were not released: %v", e.BookingID, e.SeatIDs, e.Err)
}

func (e *SeatReleaseError) Unwrap() error {
	return e.Err
}
