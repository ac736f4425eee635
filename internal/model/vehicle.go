package model

import "time"

// VehicleKind discriminates the two roster types the service books
// seats for.  Buses run fixed routes; cars are hired per day.
type VehicleKind string

const (
	VehicleBus VehicleKind = "BUS" // fixed-route bus
	VehicleCar VehicleKind = "CAR" // hired car
)

// Vehicle is one entry in the operator roster.  Buses and cars share a
// single catalog; kind-specific fields are zero for the other kind.
// The registration number is the external identity used by bookings
// and by the seat inventory, and is unique across the catalog.
//
// Fields:
//  ID                 – primary key identifier.
//  Kind               – BUS or CAR.
//  Name               – display name (e.g. "Highway Express").
//  Number             – registration number, unique.
//  Operator           – operating company.
//  FromLocation       – route origin (buses) or pickup region (cars).
//  ToLocation         – route destination or drop region.
//  DepartureTime      – scheduled departure, "HH:MM" (buses).
//  ArrivalTime        – scheduled arrival, "HH:MM" (buses).
//  Category           – bus type (AC Sleeper, Volvo AC, ...) or car type.
//  Brand              – manufacturer (cars).
//  FuelType           – petrol/diesel/electric (cars).
//  TotalSeats         – size of the seat-code space.
//  PricePerSeatCents  – per-seat fare in cents (buses).
//  PricePerDayCents   – per-day hire price in cents (cars).
//  Rating             – aggregate customer rating, 0–5.
//  Amenities          – free-form amenity labels.
//  CancellationPolicy – human-readable cancellation terms.
//  IsActive           – soft-delete flag; inactive vehicles are hidden.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Vehicle struct {
	ID                 uint64      `json:"id"`
	Kind               VehicleKind `json:"kind"`
	Name               string      `json:"name"`
	Number             string      `json:"number"`
	Operator           string      `json:"operator"`
	FromLocation       string      `json:"from_location"`
	ToLocation         string      `json:"to_location"`
	DepartureTime      string      `json:"departure_time,omitempty"`
	ArrivalTime        string      `json:"arrival_time,omitempty"`
	Category           string      `json:"category"`
	Brand              string      `json:"brand,omitempty"`
	FuelType           string      `json:"fuel_type,omitempty"`
	TotalSeats         uint32      `json:"total_seats"`
	PricePerSeatCents  uint32      `json:"price_per_seat_cents,omitempty"`
	PricePerDayCents   uint32      `json:"price_per_day_cents,omitempty"`
	Rating             float64     `json:"rating"`
	Amenities          []string    `json:"amenities"`
	CancellationPolicy string      `json:"cancellation_policy,omitempty"`
	IsActive           bool        `json:"is_active"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// ValidKind reports whether s names a known vehicle kind.
func ValidKind(s string) bool {
	switch VehicleKind(s) {
	case VehicleBus, VehicleCar:
		return true
	}
	return false
}
