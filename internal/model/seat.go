package model

import "fmt"

// SeatID identifies a seat within one screen's grid.  It is the
// row label followed by the one-based column number, e.g. "A1" or
// "C12".  Identifiers are only meaningful together with a ShowKey.
type SeatID string

// SeatStatus is the display state of a seat in a seat map.
type SeatStatus string

const (
	// SeatAvailable means the seat can be selected.
	SeatAvailable SeatStatus = "available"
	// SeatSelected means the seat is part of the current selection.
	SeatSelected SeatStatus = "selected"
	// SeatHeld means another customer holds the seat right now.
	SeatHeld SeatStatus = "held"
	// SeatBooked means the seat has been sold.
	SeatBooked SeatStatus = "booked"
)

// ShowKey identifies one screening: a screen at a showtime.  Each
// selection engine and every seat hold is scoped to exactly one
// ShowKey.
//
// Fields:
//  ScreenID – catalog id of the screen (e.g. "s1").
//  ShowTime – showtime label as listed for the screen (e.g. "10:00 AM").
type ShowKey struct {
	ScreenID string `json:"screenId"`
	ShowTime string `json:"showTime"`
}

// String renders the key in a form suitable for logs and cache keys.
func (k ShowKey) String() string {
	return fmt.Sprintf("%s@%s", k.ScreenID, k.ShowTime)
}
