// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// Queue names used for booking lifecycle events.
const (
	ConfirmedQueueName = "booking.confirmed"
	CancelledQueueName = "booking.cancelled"
)

// BookingConfirmedEvent is published when a reservation commits.  It
// carries enough information for downstream consumers to log, notify
// or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID       string   `json:"booking_id"`
	VehicleKind     string   `json:"vehicle_kind"`
	VehicleNumber   string   `json:"vehicle_number"`
	TravelDate      string   `json:"travel_date"`
	Seats           []string `json:"seats"`
	PassengerEmail  string   `json:"passenger_email"`
	TotalPriceCents uint32   `json:"total_price_cents"`
	ConfirmedAt     string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled and
// its seats released back to the inventory.
type BookingCancelledEvent struct {
	BookingID     string   `json:"booking_id"`
	VehicleKind   string   `json:"vehicle_kind"`
	VehicleNumber string   `json:"vehicle_number"`
	TravelDate    string   `json:"travel_date"`
	ReleasedSeats []string `json:"released_seats"`
	CancelledAt   string   `json:"cancelled_at"`
}
