package model

import "time"

// Booking status values.  A booking is created CONFIRMED – reservation
// requests are synchronous and either commit fully or not at all, so
// there is no pending state.  The only transition is CONFIRMED to
// CANCELLED.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Payment status values carried on a booking.  The service stores them
// opaquely; no gateway is involved.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

// ValidPaymentStatus reports whether s is one of the payment status values.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Booking records one customer's seats on a vehicle for a travel date.
// SelectedSeats keeps the customer's chosen order and must always be a
// subset of the occupied set recorded in seat_inventory for the same
// (vehicle number, travel date) while the booking is CONFIRMED.
//
// Fields:
//  ID             – UUID string identifier.
//  VehicleKind    – BUS or CAR.
//  VehicleNumber  – registration number of the booked vehicle.
//  TravelDate     – calendar day of travel (UTC, time-of-day discarded).
//  SelectedSeats  – seat codes in the order the customer chose them.
//  PassengerName  – passenger/customer name.
//  PassengerEmail – contact e-mail, used for booking lookups.
//  PassengerPhone – contact phone.
//  PassengerAge   – passenger age (buses; zero for cars).
//  FromLocation   – journey origin.
//  ToLocation     – journey destination.
//  PricePerSeatCents – fare per seat in cents.
//  TotalPriceCents   – total charged in cents.
//  PaymentMethod  – cash, card, upi, net banking.
//  PaymentStatus  – PENDING/PAID/FAILED/REFUNDED.
//  TransactionID  – opaque payment reference.
//  Status         – CONFIRMED or CANCELLED.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Booking struct {
	ID                string    `json:"id"`
	VehicleKind       string    `json:"vehicle_kind"`
	VehicleNumber     string    `json:"vehicle_number"`
	TravelDate        time.Time `json:"travel_date"`
	SelectedSeats     []string  `json:"selected_seats"`
	PassengerName     string    `json:"passenger_name"`
	PassengerEmail    string    `json:"passenger_email"`
	PassengerPhone    string    `json:"passenger_phone"`
	PassengerAge      uint32    `json:"passenger_age,omitempty"`
	FromLocation      string    `json:"from_location"`
	ToLocation        string    `json:"to_location"`
	PricePerSeatCents uint32    `json:"price_per_seat_cents"`
	TotalPriceCents   uint32    `json:"total_price_cents"`
	PaymentMethod     string    `json:"payment_method"`
	PaymentStatus     string    `json:"payment_status"`
	TransactionID     string    `json:"transaction_id,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Key returns the reservation key this booking occupies seats under.
func (b *Booking) Key() ReservationKey {
	return NewReservationKey(b.VehicleNumber, b.TravelDate)
}
