// Package fare prices a seat selection.
package fare

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// ConvenienceFee is charged once per booking, whatever the seat count.
const ConvenienceFee = 20

// Fare is the price breakdown shown on the payment and confirmation views.
type Fare struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Fee      decimal.Decimal `json:"convenienceFee"`
	Total    decimal.Decimal `json:"total"`
}

// Calculate prices seatCount seats at pricePerSeat.  A negative count
// is treated as zero.
func Calculate(seatCount int, pricePerSeat decimal.Decimal) Fare {
	subtotal := pricePerSeat.Mul(decimal.NewFromInt(int64(max(seatCount, 0))))
	fee := decimal.NewFromInt(ConvenienceFee)
	return Fare{Subtotal: subtotal, Fee: fee, Total: subtotal.Add(fee)}
}

// ForDraft prices a booking draft or confirmation.
func ForDraft(d model.BookingDraft) Fare {
	return Calculate(len(d.SelectedSeats), d.PricePerSeat)
}
