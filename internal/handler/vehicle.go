package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
)

// VehicleHandler exposes the operator roster CRUD.  These are plain
// catalog operations with no reservation logic; the only invariant is
// registration-number uniqueness, enforced by the store.
type VehicleHandler struct {
	Vehicles *repository.VehicleRepo
}

// NewVehicleHandler constructs a VehicleHandler.
func NewVehicleHandler(vehicles *repository.VehicleRepo) *VehicleHandler {
	if vehicles == nil {
		panic("nil repository passed to NewVehicleHandler")
	}
	return &VehicleHandler{Vehicles: vehicles}
}

// CreateVehicle handles POST /v1/vehicles.
func (h *VehicleHandler) CreateVehicle(c echo.Context) error {
	var v model.Vehicle
	if err := c.Bind(&v); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	var invalid []string
	if !model.ValidKind(string(v.Kind)) {
		invalid = append(invalid, "kind")
	}
	requireField(&invalid, "name", v.Name)
	requireField(&invalid, "number", v.Number)
	requireField(&invalid, "operator", v.Operator)
	if v.TotalSeats == 0 {
		invalid = append(invalid, "total_seats")
	}
	if len(invalid) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "missing or invalid fields",
			"fields": invalid,
		})
	}
	v.Number = strings.TrimSpace(v.Number)
	v.IsActive = true
	if v.Amenities == nil {
		v.Amenities = []string{}
	}
	if err := h.Vehicles.Create(c.Request().Context(), &v); err != nil {
		if errors.Is(err, repository.ErrVehicleExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add vehicle"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "vehicle added",
		"vehicle": v,
	})
}

// ListVehicles handles GET /v1/vehicles?kind=BUS|CAR.
func (h *VehicleHandler) ListVehicles(c echo.Context) error {
	kind := strings.ToUpper(strings.TrimSpace(c.QueryParam("kind")))
	if kind != "" && !model.ValidKind(kind) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle kind"})
	}
	vehicles, err := h.Vehicles.ListActive(c.Request().Context(), kind)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load vehicles"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":    len(vehicles),
		"vehicles": vehicles,
	})
}

// GetVehicle handles GET /v1/vehicles/:id.
func (h *VehicleHandler) GetVehicle(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	v, err := h.Vehicles.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch vehicle"})
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicle": v})
}

// GetVehicleByNumber handles GET /v1/vehicles/number/:number.
func (h *VehicleHandler) GetVehicleByNumber(c echo.Context) error {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle number"})
	}
	v, err := h.Vehicles.GetByNumber(c.Request().Context(), number)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch vehicle"})
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicle": v})
}

// UpdateVehicle handles PUT /v1/vehicles/:id.  Kind and registration
// number are immutable; the rest of the roster fields are replaced.
func (h *VehicleHandler) UpdateVehicle(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	current, err := h.Vehicles.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch vehicle"})
	}
	var v model.Vehicle
	if err := c.Bind(&v); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	v.ID = id
	v.Kind = current.Kind
	v.Number = current.Number
	if v.Amenities == nil {
		v.Amenities = []string{}
	}
	if err := h.Vehicles.Update(c.Request().Context(), &v); err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update vehicle"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "vehicle updated"})
}

// DeleteVehicle handles DELETE /v1/vehicles/:id.  Vehicles are
// deactivated, not removed, so existing bookings keep a valid
// reference.
func (h *VehicleHandler) DeleteVehicle(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	if err := h.Vehicles.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete vehicle"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "vehicle deactivated"})
}
