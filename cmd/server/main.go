package main // Entry point package

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-seat-reservation/internal/config"
	"github.com/iliyamo/travel-seat-reservation/internal/database"
	"github.com/iliyamo/travel-seat-reservation/internal/handler"
	"github.com/iliyamo/travel-seat-reservation/internal/queue"
	"github.com/iliyamo/travel-seat-reservation/internal/repository"
	"github.com/iliyamo/travel-seat-reservation/internal/router"
	"github.com/iliyamo/travel-seat-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	// Repositories over the three collections: roster, booking
	// catalog, seat inventory.
	vehicleRepo := repository.NewVehicleRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	inventoryRepo := repository.NewSeatInventoryRepo(db)

	publisher := queue.NewPublisher(log)
	reservations := service.NewReservationService(inventoryRepo, bookingRepo, vehicleRepo, publisher, log)

	// Optional Redis: response cache + rate limiting degrade to
	// pass-through when nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; response cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterBooking(e, handler.NewBookingHandler(reservations, bookingRepo), rdb)
	router.RegisterVehicles(e, handler.NewVehicleHandler(vehicleRepo), rdb)

	// Background audit trail of booking lifecycle events.
	go func() {
		if err := queue.StartBookingAuditConsumer(log); err != nil {
			log.WithError(err).Error("booking audit consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	log.Infof("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
