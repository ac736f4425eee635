package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StartBookingAuditConsumer connects to RabbitMQ, declares the booking
// lifecycle queues (durable) and appends every event to
// logs/booking.log in a single-line, human-friendly format.  It runs a
// reconnect loop with capped exponential backoff and never returns
// under normal operation; processing errors are logged and the
// offending message rejected without requeue so the server keeps
// running.
func StartBookingAuditConsumer(log *logrus.Logger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("booking-consumer: dial failed; retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, log); err != nil {
			log.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, log *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("booking-consumer: set QoS failed")
	}

	for _, name := range []string{ConfirmedQueueName, CancelledQueueName} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	confirmed, err := ch.Consume(ConfirmedQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ConfirmedQueueName, err)
	}
	cancelled, err := ch.Consume(CancelledQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", CancelledQueueName, err)
	}

	for {
		select {
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("confirmed deliveries channel closed")
			}
			ackOrReject(d, handleConfirmed(d.Body), log)
		case d, ok := <-cancelled:
			if !ok {
				return errors.New("cancelled deliveries channel closed")
			}
			ackOrReject(d, handleCancelled(d.Body), log)
		}
	}
}

func ackOrReject(d amqp.Delivery, err error, log *logrus.Logger) {
	if err != nil {
		log.WithError(err).Warn("booking-consumer: handle message failed")
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | vehicle=%s/%s | date=%s | seats=[%s] | email=%s | total=%d cents\n",
		ev.ConfirmedAt, ev.BookingID, ev.VehicleKind, ev.VehicleNumber, ev.TravelDate,
		strings.Join(ev.Seats, ","), ev.PassengerEmail, ev.TotalPriceCents)
	return appendAuditLine(line)
}

func handleCancelled(body []byte) error {
	var ev BookingCancelledEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking cancelled | booking_id=%s | vehicle=%s/%s | date=%s | released=[%s]\n",
		ev.CancelledAt, ev.BookingID, ev.VehicleKind, ev.VehicleNumber, ev.TravelDate,
		strings.Join(ev.ReleasedSeats, ","))
	return appendAuditLine(line)
}

func appendAuditLine(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
