package model

import "time"

// ReservationKey identifies one seat-occupancy record: a vehicle on a
// calendar day.  Two requests that differ only in time-of-day map to
// the same key, so the date is always normalized to midnight UTC.
type ReservationKey struct {
	VehicleNumber string    // registration number of the vehicle
	TravelDate    time.Time // calendar day, midnight UTC
}

// NewReservationKey builds a key from a vehicle number and any
// timestamp on the travel day.  The time-of-day is discarded.
func NewReservationKey(vehicleNumber string, travelDate time.Time) ReservationKey {
	return ReservationKey{
		VehicleNumber: vehicleNumber,
		TravelDate:    NormalizeTravelDate(travelDate),
	}
}

// NormalizeTravelDate truncates t to its calendar day in UTC.
func NormalizeTravelDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DateString renders the key's travel date in the form stored in the
// seat_inventory.travel_date DATE column.
func (k ReservationKey) DateString() string {
	return k.TravelDate.Format("2006-01-02")
}

// SeatInventory is the authoritative occupancy record for one key.
// It is created lazily on the first successful reservation and never
// deleted, even when every seat has been released.
//
// Fields:
//  Key           – the (vehicle number, travel date) identity.
//  OccupiedSeats – seat codes currently held by confirmed bookings.
//  LastUpdated   – bumped on every successful reserve or release.
type SeatInventory struct {
	Key           ReservationKey `json:"-"`
	OccupiedSeats []string       `json:"occupied_seats"`
	LastUpdated   time.Time      `json:"last_updated"`
}
