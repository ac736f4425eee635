package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
	"github.com/iliyamo/travel-seat-reservation/internal/service"
	"github.com/iliyamo/travel-seat-reservation/internal/utils"
)

// BookingReader covers the catalog pass-through queries the handler
// serves directly, without going through the reservation service.
// *repository.BookingRepo satisfies it.
type BookingReader interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context) ([]model.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]model.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id, paymentStatus string) (*model.Booking, error)
}

// BookingHandler exposes the reservation core over HTTP: commit,
// occupancy snapshot, cancellation, plus the booking catalog reads.
// Validation happens here, before anything touches a store.
type BookingHandler struct {
	Reservations *service.ReservationService
	Bookings     BookingReader
}

// NewBookingHandler constructs a BookingHandler.  Both dependencies
// must be non-nil.
func NewBookingHandler(svc *service.ReservationService, bookings BookingReader) *BookingHandler {
	if svc == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Reservations: svc, Bookings: bookings}
}

// createBookingRequest is the JSON body of POST /v1/{bus,car}/bookings.
// Payment card/UPI details from the legacy clients are accepted but
// never persisted beyond the opaque method and transaction reference.
type createBookingRequest struct {
	VehicleNumber     string   `json:"vehicle_number"`
	TravelDate        string   `json:"travel_date"`
	SelectedSeats     []string `json:"selected_seats"`
	PassengerName     string   `json:"name"`
	PassengerEmail    string   `json:"email"`
	PassengerPhone    string   `json:"phone"`
	PassengerAge      uint32   `json:"age,omitempty"`
	FromLocation      string   `json:"from_location"`
	ToLocation        string   `json:"to_location"`
	PricePerSeatCents uint32   `json:"price_per_seat_cents"`
	TotalPriceCents   uint32   `json:"total_price_cents"`
	PaymentMethod     string   `json:"payment_method"`
}

// CreateBooking returns the commit handler for one vehicle kind, used
// by both POST /v1/bus/bookings and POST /v1/car/bookings.
//
// Responses: 201 with the booking id and an echo of the reserved
// seats; 409 with the exact conflicting seats; 400 listing the
// missing or invalid fields; 404 for an unknown vehicle.
func (h *BookingHandler) CreateBooking(kind model.VehicleKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createBookingRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}

		var invalid []string
		requireField(&invalid, "vehicle_number", req.VehicleNumber)
		requireField(&invalid, "name", req.PassengerName)
		requireField(&invalid, "email", req.PassengerEmail)
		requireField(&invalid, "phone", req.PassengerPhone)
		requireField(&invalid, "from_location", req.FromLocation)
		requireField(&invalid, "to_location", req.ToLocation)

		travelDate, err := utils.ParseTravelDate(req.TravelDate)
		if err != nil {
			invalid = append(invalid, "travel_date")
		}
		seats := utils.CleanSeats(req.SelectedSeats)
		if len(seats) == 0 {
			invalid = append(invalid, "selected_seats")
		} else if dups := utils.DuplicateSeats(seats); len(dups) > 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "duplicate seat codes in request",
				"fields": []string{"selected_seats"},
				"seats":  dups,
			})
		}
		if len(invalid) > 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "missing or invalid fields",
				"fields": invalid,
			})
		}

		total := req.TotalPriceCents
		if total == 0 {
			total = req.PricePerSeatCents * uint32(len(seats))
		}
		booking := &model.Booking{
			VehicleKind:       string(kind),
			VehicleNumber:     strings.TrimSpace(req.VehicleNumber),
			TravelDate:        travelDate,
			SelectedSeats:     seats,
			PassengerName:     req.PassengerName,
			PassengerEmail:    req.PassengerEmail,
			PassengerPhone:    req.PassengerPhone,
			PassengerAge:      req.PassengerAge,
			FromLocation:      req.FromLocation,
			ToLocation:        req.ToLocation,
			PricePerSeatCents: req.PricePerSeatCents,
			TotalPriceCents:   total,
			PaymentMethod:     defaultString(req.PaymentMethod, "cash"),
			PaymentStatus:     model.PaymentPaid,
		}

		created, err := h.Reservations.CommitBooking(c.Request().Context(), booking)
		if err != nil {
			if conflict, ok := repository.IsSeatConflict(err); ok {
				return c.JSON(http.StatusConflict, echo.Map{
					"error":             conflict.Error(),
					"conflicting_seats": conflict.Seats,
				})
			}
			if errors.Is(err, repository.ErrVehicleNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
		}
		return c.JSON(http.StatusCreated, echo.Map{
			"message":        "booking successful",
			"booking_id":     created.ID,
			"transaction_id": created.TransactionID,
			"selected_seats": created.SelectedSeats,
			"travel_date":    created.TravelDate.Format("2006-01-02"),
		})
	}
}

// GetOccupancy handles GET /v1/{bus,car}/:number/seats?date=YYYY-MM-DD.
// It returns the current occupied seat codes for the vehicle and date,
// an empty list when nothing has been reserved yet.  The snapshot is
// read-only; callers must not treat it as a reservation hold.
func (h *BookingHandler) GetOccupancy(c echo.Context) error {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle number"})
	}
	travelDate, err := utils.ParseTravelDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "missing or invalid fields",
			"fields": []string{"date"},
		})
	}
	seats, err := h.Reservations.Occupancy(c.Request().Context(), number, travelDate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load occupancy"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"vehicle_number": number,
		"travel_date":    travelDate.Format("2006-01-02"),
		"booked_seats":   seats,
	})
}

// CancelBooking handles DELETE /v1/bookings/:id.  On success it
// returns the cancelled booking's details; an unknown or already
// cancelled id yields 404.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id := c.Param("id")
	booking, err := h.Reservations.CancelBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "booking cancelled",
		"booking": booking,
	})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.Bookings.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// ListBookings handles GET /v1/bookings and GET /v1/bookings?email=.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		bookings []model.Booking
		err      error
	)
	if email := c.QueryParam("email"); email != "" {
		bookings, err = h.Bookings.ListByEmail(ctx, email)
	} else {
		bookings, err = h.Bookings.List(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":    len(bookings),
		"bookings": bookings,
	})
}

// UpdateBookingStatus handles PUT /v1/bookings/:id/status.  Only the
// payment status can change through this endpoint.  The booking status
// column is owned by the reservation flow: commit writes CONFIRMED and
// DELETE /v1/bookings/:id writes CANCELLED alongside the seat release.
// No other transition exists – in particular, re-confirming a
// cancelled booking would claim seats the inventory may have handed to
// another customer since.
func (h *BookingHandler) UpdateBookingStatus(c echo.Context) error {
	var body struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Status != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "booking status cannot be changed here; cancel via DELETE /v1/bookings/:id",
		})
	}
	if !model.ValidPaymentStatus(body.PaymentStatus) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "missing or invalid fields",
			"fields": []string{"payment_status"},
		})
	}
	booking, err := h.Bookings.UpdatePaymentStatus(c.Request().Context(), c.Param("id"), body.PaymentStatus)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// ReconcileInventory handles POST /v1/admin/inventory/reconcile.  It
// rebuilds one key's occupancy from its confirmed bookings and reports
// any drift found.
func (h *BookingHandler) ReconcileInventory(c echo.Context) error {
	var body struct {
		VehicleNumber string `json:"vehicle_number"`
		TravelDate    string `json:"travel_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	travelDate, err := utils.ParseTravelDate(body.TravelDate)
	if err != nil || strings.TrimSpace(body.VehicleNumber) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "missing or invalid fields",
			"fields": []string{"vehicle_number", "travel_date"},
		})
	}
	key := model.NewReservationKey(strings.TrimSpace(body.VehicleNumber), travelDate)
	report, err := h.Reservations.ReconcileInventory(c.Request().Context(), key)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
	}
	return c.JSON(http.StatusOK, report)
}

func requireField(invalid *[]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		*invalid = append(*invalid, name)
	}
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
