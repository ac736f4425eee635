package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// ReconcileReport describes how a key's stored occupancy differed from
// the union of its confirmed bookings.
//
// Missing seats appear in a confirmed booking but not in the occupied
// set – a subset-invariant violation that indicates a bug elsewhere.
// Orphaned seats are occupied with no booking accounting for them –
// the expected residue of a failed compensating release.  Repaired is
// true when the stored set was rewritten.
type ReconcileReport struct {
	VehicleNumber string   `json:"vehicle_number"`
	TravelDate    string   `json:"travel_date"`
	Missing       []string `json:"missing_seats"`
	Orphaned      []string `json:"orphaned_seats"`
	Repaired      bool     `json:"repaired"`
}

// ReconcileInventory rebuilds the occupied set for key from the
// confirmed bookings and rewrites the inventory record when the two
// disagree.  It is the repair path for drift left behind by failed
// compensating releases; under honored contracts it finds nothing.
func (s *ReservationService) ReconcileInventory(ctx context.Context, key model.ReservationKey) (*ReconcileReport, error) {
	truth, err := s.bookings.ConfirmedSeatsForKey(ctx, key)
	if err != nil {
		return nil, err
	}
	current, err := s.inventory.GetOccupied(ctx, key)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		VehicleNumber: key.VehicleNumber,
		TravelDate:    key.DateString(),
		Missing:       diffSeats(truth, current),
		Orphaned:      diffSeats(current, truth),
	}
	if len(report.Missing) == 0 && len(report.Orphaned) == 0 {
		return report, nil
	}

	if len(report.Missing) > 0 {
		// Confirmed bookings reference seats the inventory does not
		// hold.  The contracts forbid this state; flag it as a bug,
		// then repair anyway.
		s.log.WithFields(logrus.Fields{
			"vehicle_number": key.VehicleNumber,
			"travel_date":    key.DateString(),
			"missing_seats":  report.Missing,
		}).Error("invariant violation: confirmed booking seats absent from inventory")
	}
	if len(report.Orphaned) > 0 {
		s.log.WithFields(logrus.Fields{
			"vehicle_number": key.VehicleNumber,
			"travel_date":    key.DateString(),
			"orphaned_seats": report.Orphaned,
		}).Warn("inventory drift: occupied seats with no confirmed booking")
	}

	if err := s.inventory.SetOccupied(ctx, key, truth); err != nil {
		return report, err
	}
	report.Repaired = true
	return report, nil
}

// diffSeats returns the members of a that are not in b, in order.
func diffSeats(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := in[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
