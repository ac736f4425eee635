package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// VehicleRepo provides CRUD access to the vehicles table, the operator
// roster of buses and cars.  The reservation core only consults it to
// verify that a vehicle exists and is active; everything else is plain
// catalog maintenance.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo returns a new VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

const vehicleColumns = `id, kind, name, number, operator, from_location, to_location,
	departure_time, arrival_time, category, brand, fuel_type, total_seats,
	price_per_seat_cents, price_per_day_cents, rating, amenities,
	cancellation_policy, is_active, created_at, updated_at`

// Create inserts a new roster entry and populates the generated ID.
// ErrVehicleExists is returned when the registration number is already
// taken.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	amenities, err := json.Marshal(v.Amenities)
	if err != nil {
		return err
	}
	const q = `INSERT INTO vehicles (kind, name, number, operator, from_location, to_location,
	               departure_time, arrival_time, category, brand, fuel_type, total_seats,
	               price_per_seat_cents, price_per_day_cents, rating, amenities,
	               cancellation_policy, is_active)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		v.Kind, v.Name, v.Number, v.Operator, v.FromLocation, v.ToLocation,
		v.DepartureTime, v.ArrivalTime, v.Category, v.Brand, v.FuelType, v.TotalSeats,
		v.PricePerSeatCents, v.PricePerDayCents, v.Rating, amenities,
		v.CancellationPolicy, v.IsActive,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrVehicleExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM vehicles WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, v.ID).Scan(&v.CreatedAt, &v.UpdatedAt)
}

// GetByID returns a vehicle by primary key, ErrVehicleNotFound when absent.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (*model.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
	return r.getOne(ctx, q, id)
}

// GetByNumber returns a vehicle by registration number, the identity
// bookings refer to.  ErrVehicleNotFound when absent.
func (r *VehicleRepo) GetByNumber(ctx context.Context, number string) (*model.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE number = ?`
	return r.getOne(ctx, q, number)
}

// ListActive returns all active vehicles of the given kind, newest
// first.  An empty kind lists both buses and cars.
func (r *VehicleRepo) ListActive(ctx context.Context, kind string) ([]model.Vehicle, error) {
	q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE is_active = TRUE`
	args := []interface{}{}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the mutable roster fields of a vehicle.  The kind
// and registration number are fixed at creation.  ErrVehicleNotFound
// is returned for an unknown id.
func (r *VehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	amenities, err := json.Marshal(v.Amenities)
	if err != nil {
		return err
	}
	const q = `UPDATE vehicles SET name = ?, operator = ?, from_location = ?, to_location = ?,
	               departure_time = ?, arrival_time = ?, category = ?, brand = ?, fuel_type = ?,
	               total_seats = ?, price_per_seat_cents = ?, price_per_day_cents = ?, rating = ?,
	               amenities = ?, cancellation_policy = ?, is_active = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		v.Name, v.Operator, v.FromLocation, v.ToLocation,
		v.DepartureTime, v.ArrivalTime, v.Category, v.Brand, v.FuelType,
		v.TotalSeats, v.PricePerSeatCents, v.PricePerDayCents, v.Rating,
		amenities, v.CancellationPolicy, v.IsActive, v.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// Deactivate soft-deletes a vehicle so it stops appearing in listings
// while existing bookings keep a valid reference.  ErrVehicleNotFound
// is returned when the id is unknown or already inactive.
func (r *VehicleRepo) Deactivate(ctx context.Context, id uint64) error {
	const q = `UPDATE vehicles SET is_active = FALSE, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND is_active = TRUE`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

func (r *VehicleRepo) getOne(ctx context.Context, q string, arg interface{}) (*model.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	return v, err
}

// scanVehicle reads one vehicles row in vehicleColumns order.
func scanVehicle(row rowScanner) (*model.Vehicle, error) {
	var v model.Vehicle
	var amenities []byte
	if err := row.Scan(
		&v.ID, &v.Kind, &v.Name, &v.Number, &v.Operator, &v.FromLocation, &v.ToLocation,
		&v.DepartureTime, &v.ArrivalTime, &v.Category, &v.Brand, &v.FuelType, &v.TotalSeats,
		&v.PricePerSeatCents, &v.PricePerDayCents, &v.Rating, &amenities,
		&v.CancellationPolicy, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &v.Amenities); err != nil {
			return nil, err
		}
	}
	if v.Amenities == nil {
		v.Amenities = []string{}
	}
	return &v, nil
}
