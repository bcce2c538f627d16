package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-checkout/internal/queue"
)

// EventPublisher announces confirmed bookings to other systems.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// AMQPPublisher publishes to the booking.confirmed queue.  Each call
// opens its own connection.
type AMQPPublisher struct {
	url string
	log logrus.FieldLogger
}

func NewAMQPPublisher(url string, log logrus.FieldLogger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log.WithField("component", "rabbitmq")}
}

// PublishBookingConfirmed sends event as a persistent JSON message.
// Errors are logged and returned; callers may ignore them.
func (p *AMQPPublisher) PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Warn("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.BookingConfirmedQueue, // name
		true,                        // durable
		false,                       // autoDelete
		false,                       // exclusive
		false,                       // noWait
		nil,                         // args
	); err != nil {
		p.log.WithError(err).Warn("queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.BookingID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.BookingConfirmedQueue, false, false, pub); err != nil {
		p.log.WithError(err).Warn("publish failed")
		return err
	}
	return nil
}

// NopPublisher drops events.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, queue.BookingConfirmedEvent) error {
	return nil
}
