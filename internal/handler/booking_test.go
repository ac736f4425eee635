package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
	"github.com/iliyamo/travel-seat-reservation/internal/service"
)

// memStore backs the handler tests with an in-memory inventory and
// booking catalog sharing one lock.
type memStore struct {
	mu       sync.Mutex
	occupied map[string][]string
	bookings map[string]*model.Booking
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{
		occupied: make(map[string][]string),
		bookings: make(map[string]*model.Booking),
	}
}

func storeKey(key model.ReservationKey) string {
	return key.VehicleNumber + "|" + key.DateString()
}

func (m *memStore) GetOccupied(_ context.Context, key model.ReservationKey) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.occupied[storeKey(key)]...), nil
}

func (m *memStore) Reserve(_ context.Context, key model.ReservationKey, seats []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.occupied[storeKey(key)]
	if conflicts := repository.ConflictingSeats(seats, cur); len(conflicts) > 0 {
		return &repository.SeatConflictError{Seats: conflicts}
	}
	m.occupied[storeKey(key)] = append(cur, seats...)
	return nil
}

func (m *memStore) Release(_ context.Context, key model.ReservationKey, seats []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		drop[s] = struct{}{}
	}
	var kept []string
	for _, s := range m.occupied[storeKey(key)] {
		if _, ok := drop[s]; !ok {
			kept = append(kept, s)
		}
	}
	m.occupied[storeKey(key)] = kept
	return nil
}

func (m *memStore) SetOccupied(_ context.Context, key model.ReservationKey, seats []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupied[storeKey(key)] = append([]string{}, seats...)
	return nil
}

func (m *memStore) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		m.nextID++
		b.ID = fmt.Sprintf("bk-%03d", m.nextID)
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

// GetByID returns the booking cancelled or not, matching the
// repository contract: only unknown ids are a miss.
func (m *memStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) MarkCancelled(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status == model.BookingCancelled {
		return repository.ErrBookingNotFound
	}
	b.Status = model.BookingCancelled
	return nil
}

func (m *memStore) ConfirmedSeatsForKey(_ context.Context, key model.ReservationKey) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, b := range m.bookings {
		if b.Status != model.BookingConfirmed || storeKey(b.Key()) != storeKey(key) {
			continue
		}
		for _, s := range b.SelectedSeats {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (m *memStore) List(_ context.Context) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (m *memStore) ListByEmail(_ context.Context, email string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings {
		if b.PassengerEmail == email {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePaymentStatus(_ context.Context, id, paymentStatus string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	b.PaymentStatus = paymentStatus
	cp := *b
	return &cp, nil
}

func newTestHandler(t *testing.T) (*BookingHandler, *memStore) {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	store := newMemStore()
	svc := service.NewReservationService(store, store, nil, nil, log)
	return NewBookingHandler(svc, store), store
}

func doJSON(t *testing.T, e *echo.Echo, h echo.HandlerFunc, method, target, body string, setup func(echo.Context)) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	require.NoError(t, h(c))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

const validBookingBody = `{
	"vehicle_number": "BUS-1",
	"travel_date": "2024-06-01",
	"selected_seats": ["1A", "1B"],
	"name": "Asha",
	"email": "asha@example.com",
	"phone": "+9411234567",
	"from_location": "Colombo",
	"to_location": "Kandy",
	"price_per_seat_cents": 1500,
	"payment_method": "card"
}`

func TestCreateBooking(t *testing.T) {
	e := echo.New()

	t.Run("Created", func(t *testing.T) {
		h, store := newTestHandler(t)
		rec, payload := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", validBookingBody, nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, payload["booking_id"])
		assert.NotEmpty(t, payload["transaction_id"])
		assert.Equal(t, []any{"1A", "1B"}, payload["selected_seats"])
		assert.Equal(t, "2024-06-01", payload["travel_date"])

		b := store.bookings[payload["booking_id"].(string)]
		require.NotNil(t, b)
		assert.Equal(t, model.BookingConfirmed, b.Status)
		// total derived from price_per_seat_cents * seat count
		assert.Equal(t, uint32(3000), b.TotalPriceCents)
	})

	t.Run("Missing Fields", func(t *testing.T) {
		h, _ := newTestHandler(t)
		body := `{"vehicle_number": "BUS-1", "selected_seats": ["1A"]}`
		rec, payload := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", body, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fields := payload["fields"].([]any)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "travel_date")
		assert.NotContains(t, fields, "vehicle_number")
	})

	t.Run("Duplicate Seats Rejected", func(t *testing.T) {
		h, _ := newTestHandler(t)
		body := strings.Replace(validBookingBody, `["1A", "1B"]`, `["1A", "1B", "1A"]`, 1)
		rec, payload := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", body, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []any{"1A"}, payload["seats"])
	})

	t.Run("Conflict Names Exact Seats", func(t *testing.T) {
		h, _ := newTestHandler(t)
		rec, _ := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", validBookingBody, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		body := strings.Replace(validBookingBody, `["1A", "1B"]`, `["1B", "1C"]`, 1)
		rec, payload := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", body, nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, []any{"1B"}, payload["conflicting_seats"])
	})
}

func TestGetOccupancy(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	rec, _ := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", validBookingBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("Occupied Seats", func(t *testing.T) {
		rec, payload := doJSON(t, e, h.GetOccupancy, http.MethodGet, "/v1/bus/BUS-1/seats?date=2024-06-01", "", func(c echo.Context) {
			c.SetParamNames("number")
			c.SetParamValues("BUS-1")
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{"1A", "1B"}, payload["booked_seats"])
	})

	t.Run("Untouched Date Is Empty", func(t *testing.T) {
		rec, payload := doJSON(t, e, h.GetOccupancy, http.MethodGet, "/v1/bus/BUS-1/seats?date=2024-06-02", "", func(c echo.Context) {
			c.SetParamNames("number")
			c.SetParamValues("BUS-1")
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, payload["booked_seats"])
	})

	t.Run("Bad Date", func(t *testing.T) {
		rec, _ := doJSON(t, e, h.GetOccupancy, http.MethodGet, "/v1/bus/BUS-1/seats?date=tomorrow", "", func(c echo.Context) {
			c.SetParamNames("number")
			c.SetParamValues("BUS-1")
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancelBooking(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	rec, payload := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", validBookingBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := payload["booking_id"].(string)

	t.Run("Cancel Frees Seats", func(t *testing.T) {
		rec, _ := doJSON(t, e, h.CancelBooking, http.MethodDelete, "/v1/bookings/"+id, "", func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues(id)
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, occ := doJSON(t, e, h.GetOccupancy, http.MethodGet, "/v1/bus/BUS-1/seats?date=2024-06-01", "", func(c echo.Context) {
			c.SetParamNames("number")
			c.SetParamValues("BUS-1")
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, occ["booked_seats"])
	})

	t.Run("Cancelled Booking Still Readable", func(t *testing.T) {
		rec, payload := doJSON(t, e, h.GetBooking, http.MethodGet, "/v1/bookings/"+id, "", func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues(id)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		booking := payload["booking"].(map[string]any)
		assert.Equal(t, model.BookingCancelled, booking["status"])
	})

	t.Run("Second Cancel Is NotFound", func(t *testing.T) {
		rec, _ := doJSON(t, e, h.CancelBooking, http.MethodDelete, "/v1/bookings/"+id, "", func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues(id)
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Unknown Id", func(t *testing.T) {
		rec, _ := doJSON(t, e, h.CancelBooking, http.MethodDelete, "/v1/bookings/none", "", func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues("none")
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateBookingStatus(t *testing.T) {
	e := echo.New()
	h, store := newTestHandler(t)

	rec, payload := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", validBookingBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := payload["booking_id"].(string)

	putStatus := func(bookingID, body string) (*httptest.ResponseRecorder, map[string]any) {
		return doJSON(t, e, h.UpdateBookingStatus, http.MethodPut, "/v1/bookings/"+bookingID+"/status", body, func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues(bookingID)
		})
	}

	t.Run("Payment Status Updated", func(t *testing.T) {
		rec, _ := putStatus(id, `{"payment_status":"REFUNDED"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.PaymentRefunded, store.bookings[id].PaymentStatus)
	})

	t.Run("Unknown Payment Status Rejected", func(t *testing.T) {
		rec, payload := putStatus(id, `{"payment_status":"SETTLED"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []any{"payment_status"}, payload["fields"])
	})

	t.Run("Booking Status Is Not Writable", func(t *testing.T) {
		rec, payload := putStatus(id, `{"status":"CANCELLED"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, payload["error"], "DELETE")
		assert.Equal(t, model.BookingConfirmed, store.bookings[id].Status)
	})

	// A cancelled booking must stay cancelled: re-confirming it would
	// claim seats the inventory may have reassigned since the release.
	t.Run("Cancelled Booking Cannot Be Resurrected", func(t *testing.T) {
		rec, _ := doJSON(t, e, h.CancelBooking, http.MethodDelete, "/v1/bookings/"+id, "", func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues(id)
		})
		require.Equal(t, http.StatusOK, rec.Code)

		// Another customer takes the freed seats.
		rec, second := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", validBookingBody, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, _ = putStatus(id, `{"status":"CONFIRMED"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, model.BookingCancelled, store.bookings[id].Status)
		assert.Equal(t, model.BookingConfirmed, store.bookings[second["booking_id"].(string)].Status)

		seats, err := store.ConfirmedSeatsForKey(context.Background(), model.NewReservationKey("BUS-1", mustDate(t, "2024-06-01")))
		require.NoError(t, err)
		assert.Equal(t, []string{"1A", "1B"}, seats, "exactly one confirmed booking may hold each seat")
	})
}

func TestReconcileEndpoint(t *testing.T) {
	e := echo.New()
	h, store := newTestHandler(t)

	rec, _ := doJSON(t, e, h.CreateBooking(model.VehicleBus), http.MethodPost, "/v1/bus/bookings", validBookingBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Inject an orphaned seat the bookings do not account for.
	key := model.NewReservationKey("BUS-1", mustDate(t, "2024-06-01"))
	require.NoError(t, store.SetOccupied(context.Background(), key, []string{"1A", "1B", "9Z"}))

	rec, payload := doJSON(t, e, h.ReconcileInventory, http.MethodPost, "/v1/admin/inventory/reconcile",
		`{"vehicle_number":"BUS-1","travel_date":"2024-06-01"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"9Z"}, payload["orphaned_seats"])
	assert.Equal(t, true, payload["repaired"])

	occupied, err := store.GetOccupied(context.Background(), key)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1A", "1B"}, occupied)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return parsed
}
