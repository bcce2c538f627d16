// Package queue defines the booking events exchanged over RabbitMQ and
// the background consumer that records them.
package queue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-checkout/internal/fare"
	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// BookingConfirmedQueue is the durable queue confirmations are sent to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a payment succeeds.  It
// carries enough of the confirmation for downstream consumers to log
// or notify without reading the session slots.
type BookingConfirmedEvent struct {
	BookingID      string          `json:"booking_id"`
	MovieID        string          `json:"movie_id"`
	MovieTitle     string          `json:"movie_title"`
	TheatreName    string          `json:"theatre_name"`
	ScreenID       string          `json:"screen_id"`
	ScreenName     string          `json:"screen_name"`
	ShowTime       string          `json:"show_time"`
	Seats          []string        `json:"seats"`
	PaymentMethod  string          `json:"payment_method"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ConvenienceFee decimal.Decimal `json:"convenience_fee"`
	Total          decimal.Decimal `json:"total"`
	ConfirmedAt    string          `json:"confirmed_at"`
}

// NewBookingConfirmedEvent builds the event for a confirmation.
func NewBookingConfirmedEvent(c model.Confirmation) BookingConfirmedEvent {
	f := fare.ForDraft(c.BookingDraft)
	seats := make([]string, 0, len(c.SelectedSeats))
	for _, s := range c.SelectedSeats {
		seats = append(seats, string(s))
	}
	return BookingConfirmedEvent{
		BookingID:      c.BookingID,
		MovieID:        c.MovieID,
		MovieTitle:     c.MovieTitle,
		TheatreName:    c.TheatreName,
		ScreenID:       c.ScreenID,
		ScreenName:     c.ScreenName,
		ShowTime:       c.ShowTime,
		Seats:          seats,
		PaymentMethod:  string(c.PaymentMethod),
		Subtotal:       f.Subtotal,
		ConvenienceFee: f.Fee,
		Total:          f.Total,
		ConfirmedAt:    c.BookingDate.UTC().Format(time.RFC3339),
	}
}
