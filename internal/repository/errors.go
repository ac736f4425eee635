// Package repository defines error values shared across the
// repositories. Sentinel errors let handlers translate storage
// outcomes into HTTP statuses without string matching, and the
// SeatConflictError type carries the exact seats that collided so the
// caller can re-prompt the customer's seat choice.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBookingNotFound is returned when a booking id does not exist or
// the booking has already been cancelled. Handlers translate this
// into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrVehicleNotFound is returned when a vehicle id or registration
// number is unknown to the catalog. Handlers translate this into an
// HTTP 404 response.
var ErrVehicleNotFound = errors.New("vehicle not found")

// ErrVehicleExists is returned when a vehicle is added with a
// registration number already present in the catalog. Handlers
// translate this into an HTTP 409 response.
var ErrVehicleExists = errors.New("vehicle number already exists")

// SeatConflictError reports that a reservation could not be committed
// because some requested seats were already occupied. Seats lists the
// full intersection in request order. A conflict is expected control
// flow, not a failure: handlers translate it into an HTTP 409
// response.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats %s are already booked", strings.Join(e.Seats, ", "))
}

// IsSeatConflict extracts a SeatConflictError from err if present.
func IsSeatConflict(err error) (*SeatConflictError, bool) {
	var sc *SeatConflictError
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}
