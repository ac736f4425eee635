package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// BookingRepo provides access to the bookings table, the catalog of
// booking documents.  The reservation service is the only writer: it
// inserts CONFIRMED bookings after the seat inventory accepted the
// seats and flips them to CANCELLED on cancellation.  Reads are plain
// pass-through queries.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, vehicle_kind, vehicle_number, travel_date, selected_seats,
	passenger_name, passenger_email, passenger_phone, passenger_age,
	from_location, to_location, price_per_seat_cents, total_price_cents,
	payment_method, payment_status, transaction_id, status, created_at, updated_at`

// Create inserts a new booking row.  When the booking carries no ID a
// fresh UUID is generated and written back onto the model, matching
// what is persisted.  CreatedAt/UpdatedAt default in the database and
// are queried back after the insert.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	seats, err := encodeSeats(b.SelectedSeats)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO bookings (id, vehicle_kind, vehicle_number, travel_date, selected_seats,
	               passenger_name, passenger_email, passenger_phone, passenger_age,
	               from_location, to_location, price_per_seat_cents, total_price_cents,
	               payment_method, payment_status, transaction_id, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		b.ID, b.VehicleKind, b.VehicleNumber, b.TravelDate.Format("2006-01-02"), seats,
		b.PassengerName, b.PassengerEmail, b.PassengerPhone, b.PassengerAge,
		b.FromLocation, b.ToLocation, b.PricePerSeatCents, b.TotalPriceCents,
		b.PaymentMethod, b.PaymentStatus, b.TransactionID, b.Status,
	)
	if err != nil {
		return err
	}
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns the booking with the given id, cancelled or not.
// ErrBookingNotFound is returned when the id is unknown.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// List returns all bookings ordered newest first.
func (r *BookingRepo) List(ctx context.Context) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	return r.queryBookings(ctx, q)
}

// ListByEmail returns the bookings made under the given passenger
// e-mail, newest first.  An unknown e-mail yields an empty slice.
func (r *BookingRepo) ListByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE passenger_email = ? ORDER BY created_at DESC`
	return r.queryBookings(ctx, q, email)
}

// MarkCancelled transitions a CONFIRMED booking to CANCELLED.  It
// returns ErrBookingNotFound when the id is unknown or the booking is
// already cancelled, making repeated cancellations of the same id
// surface as a 404 rather than double-releasing seats.
func (r *BookingRepo) MarkCancelled(ctx context.Context, id string) error {
	const q = `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.BookingCancelled, id, model.BookingConfirmed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdatePaymentStatus sets the payment status of a booking and returns
// the updated row.  The booking status column is deliberately out of
// reach: it only changes through the reservation flow (Create writes
// CONFIRMED, MarkCancelled writes CANCELLED alongside the seat
// release), so the catalog can never drift from the seat inventory
// through a plain status edit.  ErrBookingNotFound for an unknown id.
func (r *BookingRepo) UpdatePaymentStatus(ctx context.Context, id, paymentStatus string) (*model.Booking, error) {
	const q = `UPDATE bookings SET payment_status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, paymentStatus, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// ConfirmedSeatsForKey returns the union of selected seats across all
// CONFIRMED bookings for a reservation key.  The reconciliation path
// uses it as the ground truth to rebuild the occupied set.
func (r *BookingRepo) ConfirmedSeatsForKey(ctx context.Context, key model.ReservationKey) ([]string, error) {
	const q = `SELECT selected_seats FROM bookings
	           WHERE vehicle_number = ? AND travel_date = ? AND status = ?`
	rows, err := r.db.QueryContext(ctx, q, key.VehicleNumber, key.DateString(), model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all []string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		seats, err := decodeSeats(raw)
		if err != nil {
			return nil, err
		}
		all = mergeSeats(all, seats)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if all == nil {
		all = []string{}
	}
	return all, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanBooking.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBooking reads one bookings row in bookingColumns order.
func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var seats []byte
	var travelDate time.Time
	var txnID sql.NullString
	if err := row.Scan(
		&b.ID, &b.VehicleKind, &b.VehicleNumber, &travelDate, &seats,
		&b.PassengerName, &b.PassengerEmail, &b.PassengerPhone, &b.PassengerAge,
		&b.FromLocation, &b.ToLocation, &b.PricePerSeatCents, &b.TotalPriceCents,
		&b.PaymentMethod, &b.PaymentStatus, &txnID, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	// DATE columns come back as midnight in the connection location;
	// renormalize so keys derived from the booking stay stable.
	b.TravelDate = model.NormalizeTravelDate(travelDate)
	if txnID.Valid {
		b.TransactionID = txnID.String
	}
	var err error
	b.SelectedSeats, err = decodeSeats(seats)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) queryBookings(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
