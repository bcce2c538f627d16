// Package holds arbitrates who may buy a seat.  Every seat of every
// show is Free, Held by one session until an expiry, or Booked.  All
// transitions are compare-and-set against the authority's state, so two
// sessions can never both hold or book the same seat.
package holds

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// DefaultTTL is how long a hold lasts when no TTL is configured.
const DefaultTTL = 10 * time.Minute

// ErrSeatUnavailable is returned by Acquire when the seat is booked or
// held by another session.  Handlers translate it into HTTP 409.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrHoldLost is returned by Finalize when at least one seat is no
// longer held by the caller, typically because the hold lapsed and was
// taken by someone else.  Nothing is booked in that case.
var ErrHoldLost = errors.New("seat hold lost")

// Authority owns the per-seat state machine.
type Authority interface {
	// Acquire moves seat from Free (or a lapsed hold, or the caller's own
	// hold) to Held by owner.
	Acquire(ctx context.Context, show model.ShowKey, seat model.SeatID, owner string) (model.SeatHold, error)
	// Release frees seat if owner holds it.  Releasing a seat the owner
	// does not hold is a no-op.
	Release(ctx context.Context, show model.ShowKey, seat model.SeatID, owner string) error
	// ReleaseAll frees every hold owner has on show and returns the count.
	ReleaseAll(ctx context.Context, show model.ShowKey, owner string) (int, error)
	// Finalize books all seats at once, or none of them.
	Finalize(ctx context.Context, show model.ShowKey, seats []model.SeatID, owner string) error
	// Snapshot lists the active Held and Booked records of show.
	Snapshot(ctx context.Context, show model.ShowKey) ([]model.SeatHold, error)
	// Sweep returns lapsed holds to Free and reports how many were freed.
	Sweep(ctx context.Context) (int, error)
}
