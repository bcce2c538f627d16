package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the method chosen on the payment view.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentUPI
}

// BookingStatus is the status stamped on a confirmation.
type BookingStatus string

const BookingConfirmed BookingStatus = "confirmed"

// BookingDraft is the snapshot handed from the seat map to the
// payment view.  TotalAmount is the pre-fee subtotal, always
// len(SelectedSeats) × PricePerSeat.
type BookingDraft struct {
	MovieID       string          `json:"movieId"`
	MovieTitle    string          `json:"movieTitle"`
	TheatreName   string          `json:"theatreName"`
	ScreenName    string          `json:"screenName"`
	ScreenID      string          `json:"screenId"`
	ShowTime      string          `json:"showTime"`
	SelectedSeats []SeatID        `json:"selectedSeats"`
	PricePerSeat  decimal.Decimal `json:"pricePerSeat"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// Show returns the screening the draft was taken from.
func (d BookingDraft) Show() ShowKey {
	return ShowKey{ScreenID: d.ScreenID, ShowTime: d.ShowTime}
}

// Validate checks the invariants a stored draft must satisfy.
func (d BookingDraft) Validate() error {
	if len(d.SelectedSeats) == 0 {
		return errors.New("no seats selected")
	}
	seen := make(map[SeatID]struct{}, len(d.SelectedSeats))
	for _, s := range d.SelectedSeats {
		if s == "" {
			return errors.New("empty seat id")
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("duplicate seat %s", s)
		}
		seen[s] = struct{}{}
	}
	if d.PricePerSeat.IsNegative() {
		return errors.New("negative price per seat")
	}
	want := d.PricePerSeat.Mul(decimal.NewFromInt(int64(len(d.SelectedSeats))))
	if !d.TotalAmount.Equal(want) {
		return fmt.Errorf("total amount %s does not match %d × %s", d.TotalAmount, len(d.SelectedSeats), d.PricePerSeat)
	}
	return nil
}

// Confirmation is a draft that has been paid for.  The draft fields
// are flattened into the same JSON object.
type Confirmation struct {
	BookingDraft
	BookingID     string        `json:"bookingId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	BookingDate   time.Time     `json:"bookingDate"`
	Status        BookingStatus `json:"status"`
}

// Validate checks a stored confirmation before it is shown again.
func (c Confirmation) Validate() error {
	if c.BookingID == "" {
		return errors.New("missing booking id")
	}
	if !c.PaymentMethod.Valid() {
		return fmt.Errorf("unknown payment method %q", c.PaymentMethod)
	}
	if c.Status != BookingConfirmed {
		return fmt.Errorf("unexpected status %q", c.Status)
	}
	return c.BookingDraft.Validate()
}
