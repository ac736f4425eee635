package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-seat-reservation/internal/config"
	"github.com/iliyamo/travel-seat-reservation/internal/handler"
	"github.com/iliyamo/travel-seat-reservation/internal/middleware"
	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// RegisterRoutes registers the health check on the provided Echo
// instance.  Load balancers and monitoring systems use it to verify
// that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBooking registers the reservation endpoints.  The write
// paths (commit, cancel) are rate limited; the read-only occupancy
// snapshot additionally goes through the response cache, which is
// advisory only – the commit path re-checks occupancy inside the
// store.  rdb may be nil, in which case both middlewares pass through.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, rdb *redis.Client) {
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	g := e.Group("/v1")
	g.Use(limiter)

	// Reservation commit, one route per roster kind.
	g.POST("/bus/bookings", b.CreateBooking(model.VehicleBus))
	g.POST("/car/bookings", b.CreateBooking(model.VehicleCar))

	// Occupancy snapshots (cached).
	g.GET("/bus/:number/seats", b.GetOccupancy, cache)
	g.GET("/car/:number/seats", b.GetOccupancy, cache)

	// Booking catalog.
	g.GET("/bookings", b.ListBookings)
	g.GET("/bookings/:id", b.GetBooking)
	g.PUT("/bookings/:id/status", b.UpdateBookingStatus)
	g.DELETE("/bookings/:id", b.CancelBooking)

	// Inventory drift repair.
	g.POST("/admin/inventory/reconcile", b.ReconcileInventory)
}

// RegisterVehicles registers the operator roster CRUD.  Listings are
// cached; mutations are rate limited along with everything else under
// /v1.
func RegisterVehicles(e *echo.Echo, v *handler.VehicleHandler, rdb *redis.Client) {
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	g := e.Group("/v1/vehicles")
	g.POST("", v.CreateVehicle)
	g.GET("", v.ListVehicles, cache)
	g.GET("/:id", v.GetVehicle, cache)
	g.GET("/number/:number", v.GetVehicleByNumber, cache)
	g.PUT("/:id", v.UpdateVehicle)
	g.DELETE("/:id", v.DeleteVehicle)
}
