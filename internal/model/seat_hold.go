package model

import "time"

// HoldStatus is the lifecycle state of a seat within one show.
type HoldStatus string

const (
	HoldFree   HoldStatus = "FREE"
	HoldHeld   HoldStatus = "HELD"
	HoldBooked HoldStatus = "BOOKED"
)

// SeatHold is the authority's record of a seat that is not free.
// A seat moves Free → Held(owner, expiresAt) → Booked; a held seat
// returns to Free when released by its owner or when the hold lapses.
//
// Fields:
//  Show      – screening the seat belongs to.
//  Seat      – seat identifier within the screen.
//  Owner     – session that holds or booked the seat.
//  Status    – HELD or BOOKED.
//  ExpiresAt – when a HELD record lapses (zero for BOOKED).
type SeatHold struct {
	Show      ShowKey    `json:"show"`
	Seat      SeatID     `json:"seat"`
	Owner     string     `json:"-"`
	Status    HoldStatus `json:"status"`
	ExpiresAt time.Time  `json:"expiresAt,omitempty"`
}

// Active reports whether the record still blocks other customers at now.
func (h SeatHold) Active(now time.Time) bool {
	switch h.Status {
	case HoldBooked:
		return true
	case HoldHeld:
		return now.Before(h.ExpiresAt)
	default:
		return false
	}
}
