// Package service implements the reservation core: committing a
// booking together with its seat inventory mutation as one logical
// unit, and compensating on cancellation. The seat inventory is the
// single authoritative occupancy state; this service is its only
// legitimate writer (via Reserve) and releaser (via Release).
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/queue"
)

// SeatInventory is the occupancy store the service commits against.
// Reserve must be atomic per key: a conflict check and the subsequent
// write are never observable as two steps by a concurrent caller.
type SeatInventory interface {
	GetOccupied(ctx context.Context, key model.ReservationKey) ([]string, error)
	Reserve(ctx context.Context, key model.ReservationKey, seats []string) error
	Release(ctx context.Context, key model.ReservationKey, seats []string) error
	SetOccupied(ctx context.Context, key model.ReservationKey, seats []string) error
}

// BookingCatalog stores booking documents.  The service only needs
// create, read, cancel and the per-key seat union used by reconciliation.
type BookingCatalog interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	MarkCancelled(ctx context.Context, id string) error
	ConfirmedSeatsForKey(ctx context.Context, key model.ReservationKey) ([]string, error)
}

// VehicleCatalog resolves registration numbers against the roster.
type VehicleCatalog interface {
	GetByNumber(ctx context.Context, number string) (*model.Vehicle, error)
}

// EventPublisher emits booking lifecycle events.  Publishing is
// best-effort; a broker outage never fails a reservation.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// ReservationService orchestrates the dual write between the booking
// catalog and the seat inventory as a saga: reserve seats first, then
// write the booking, and release the seats again if the booking write
// fails.  The two stores are independent collections, so there is no
// cross-store transaction to lean on.
type ReservationService struct {
	inventory SeatInventory
	bookings  BookingCatalog
	vehicles  VehicleCatalog
	publisher EventPublisher
	log       *logrus.Logger
}

// NewReservationService wires the service.  publisher may be nil when
// no broker is configured; vehicles may be nil to skip roster checks
// (bookings then reference vehicles the catalog does not know).
func NewReservationService(inv SeatInventory, bookings BookingCatalog, vehicles VehicleCatalog, publisher EventPublisher, log *logrus.Logger) *ReservationService {
	if inv == nil || bookings == nil {
		panic("nil store passed to NewReservationService")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReservationService{
		inventory: inv,
		bookings:  bookings,
		vehicles:  vehicles,
		publisher: publisher,
		log:       log,
	}
}

// CommitBooking reserves the booking's seats and persists the booking
// record.  The caller must have validated the request already: seats
// non-empty, no duplicates, travel date normalized.
//
// Outcomes:
//   - seat conflict: a *repository.SeatConflictError naming the exact
//     colliding seats; nothing was written anywhere.
//   - booking write failure after a successful reserve: the seats are
//     released again before the error is returned, so no seat stays
//     occupied without a booking accounting for it.  If that release
//     itself fails the drift is logged loudly; it is repairable via
//     ReconcileInventory.
//   - success: the booking is returned CONFIRMED with its generated id.
func (s *ReservationService) CommitBooking(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	if s.vehicles != nil {
		if _, err := s.vehicles.GetByNumber(ctx, b.VehicleNumber); err != nil {
			return nil, err
		}
	}

	key := b.Key()
	b.TravelDate = key.TravelDate
	if err := s.inventory.Reserve(ctx, key, b.SelectedSeats); err != nil {
		return nil, err
	}

	b.Status = model.BookingConfirmed
	if b.TransactionID == "" {
		b.TransactionID = fmt.Sprintf("TXN%d", time.Now().UnixMilli())
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		// The seats are reserved but no booking accounts for them:
		// undo the inventory mutation before surfacing the error.
		if relErr := s.inventory.Release(ctx, key, b.SelectedSeats); relErr != nil {
			s.log.WithFields(logrus.Fields{
				"vehicle_number": key.VehicleNumber,
				"travel_date":    key.DateString(),
				"seats":          b.SelectedSeats,
				"create_error":   err.Error(),
				"release_error":  relErr.Error(),
			}).Error("unresolved inventory drift: compensating release failed after booking create error")
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.publishConfirmed(ctx, b)
	return b, nil
}

// CancelBooking flips a CONFIRMED booking to CANCELLED and releases
// its seats under the booking's own key and seat list; a caller can
// never release seats it does not own.  A release failure after the
// catalog update still reports success: the seats stay occupied until
// reconciliation, which degrades availability but can never produce a
// double booking.  Cancelling an unknown or already cancelled id
// returns repository.ErrBookingNotFound, which also makes retries of a
// timed-out cancel safe.
func (s *ReservationService) CancelBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.MarkCancelled(ctx, id); err != nil {
		return nil, err
	}
	b.Status = model.BookingCancelled

	key := b.Key()
	if err := s.inventory.Release(ctx, key, b.SelectedSeats); err != nil {
		s.log.WithFields(logrus.Fields{
			"booking_id":     b.ID,
			"vehicle_number": key.VehicleNumber,
			"travel_date":    key.DateString(),
			"seats":          b.SelectedSeats,
			"release_error":  err.Error(),
		}).Error("inventory drift: seat release failed after cancellation")
	}

	s.publishCancelled(ctx, b)
	return b, nil
}

// Occupancy returns the current occupied seat codes for a vehicle and
// travel date.  It is a read-only snapshot, never a hold: occupancy
// can change between this call and a later commit.
func (s *ReservationService) Occupancy(ctx context.Context, vehicleNumber string, travelDate time.Time) ([]string, error) {
	return s.inventory.GetOccupied(ctx, model.NewReservationKey(vehicleNumber, travelDate))
}

func (s *ReservationService) publishConfirmed(ctx context.Context, b *model.Booking) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:       b.ID,
		VehicleKind:     b.VehicleKind,
		VehicleNumber:   b.VehicleNumber,
		TravelDate:      b.TravelDate.Format("2006-01-02"),
		Seats:           b.SelectedSeats,
		PassengerEmail:  b.PassengerEmail,
		TotalPriceCents: b.TotalPriceCents,
		ConfirmedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		s.log.WithError(err).Warn("publish booking.confirmed failed")
	}
}

func (s *ReservationService) publishCancelled(ctx context.Context, b *model.Booking) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingCancelledEvent{
		BookingID:     b.ID,
		VehicleKind:   b.VehicleKind,
		VehicleNumber: b.VehicleNumber,
		TravelDate:    b.TravelDate.Format("2006-01-02"),
		ReleasedSeats: b.SelectedSeats,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishBookingCancelled(ctx, ev); err != nil {
		s.log.WithError(err).Warn("publish booking.cancelled failed")
	}
}
