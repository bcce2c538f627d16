package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// PaymentRequest is one charge attempt.
type PaymentRequest struct {
	Session string
	Method  model.PaymentMethod
	Amount  decimal.Decimal
}

// PaymentResult is the gateway's verdict.  A decline is a result, not
// an error; errors mean the attempt did not complete.
type PaymentResult struct {
	Approved  bool
	Reference string
	Reason    string
}

// PaymentGateway charges a customer.  Implementations must return
// promptly with ctx.Err() once ctx is done.
type PaymentGateway interface {
	Charge(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// SimulatedGateway approves after a fixed delay.  A non-zero decline
// rate makes a random share of attempts fail.
type SimulatedGateway struct {
	delay       time.Duration
	declineRate float64
	roll        func() float64
}

// NewSimulatedGateway returns a gateway that waits delay before
// answering and declines with probability declineRate (0..1).
func NewSimulatedGateway(delay time.Duration, declineRate float64) *SimulatedGateway {
	return &SimulatedGateway{delay: delay, declineRate: declineRate, roll: rand.Float64}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if g.delay > 0 {
		t := time.NewTimer(g.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return PaymentResult{}, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return PaymentResult{}, err
	}

	if g.declineRate > 0 && g.roll() < g.declineRate {
		return PaymentResult{Reason: "payment declined by issuer"}, nil
	}
	return PaymentResult{Approved: true, Reference: uuid.NewString()}, nil
}
