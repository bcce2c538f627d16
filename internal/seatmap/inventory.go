package seatmap

import (
	"time"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// Inventory is the seat grid of one screening: its dimensions and the
// seats that cannot be selected.  It is immutable once built.
type Inventory struct {
	rows        int
	seatsPerRow int
	booked      map[model.SeatID]struct{}
	held        map[model.SeatID]struct{}
}

// NewInventory builds an inventory from a screen layout.  Booked ids
// that are malformed or fall outside the grid are ignored.
func NewInventory(layout model.SeatLayout) *Inventory {
	inv := &Inventory{
		rows:        max(layout.Rows, 0),
		seatsPerRow: max(layout.SeatsPerRow, 0),
		booked:      make(map[model.SeatID]struct{}, len(layout.BookedSeats)),
		held:        map[model.SeatID]struct{}{},
	}
	for _, id := range layout.BookedSeats {
		if c, ok := inv.canonical(id); ok {
			inv.booked[c] = struct{}{}
		}
	}
	return inv
}

// WithHolds returns a copy of the inventory overlaid with the hold
// authority's records.  Booked records become booked seats; active
// holds owned by anyone other than owner become held seats.  The
// receiver is not modified.
func (inv *Inventory) WithHolds(records []model.SeatHold, owner string, now time.Time) *Inventory {
	out := &Inventory{
		rows:        inv.rows,
		seatsPerRow: inv.seatsPerRow,
		booked:      make(map[model.SeatID]struct{}, len(inv.booked)),
		held:        make(map[model.SeatID]struct{}, len(inv.held)),
	}
	for id := range inv.booked {
		out.booked[id] = struct{}{}
	}
	for id := range inv.held {
		out.held[id] = struct{}{}
	}
	for _, r := range records {
		id, ok := out.canonical(r.Seat)
		if !ok || !r.Active(now) {
			continue
		}
		switch {
		case r.Status == model.HoldBooked:
			out.booked[id] = struct{}{}
		case r.Owner != owner:
			out.held[id] = struct{}{}
		}
	}
	return out
}

func (inv *Inventory) Rows() int        { return inv.rows }
func (inv *Inventory) SeatsPerRow() int { return inv.seatsPerRow }

// Contains reports whether id names a seat inside the grid.
func (inv *Inventory) Contains(id model.SeatID) bool {
	_, ok := inv.canonical(id)
	return ok
}

// Booked reports whether id has been sold.
func (inv *Inventory) Booked(id model.SeatID) bool {
	_, ok := inv.booked[id]
	return ok
}

// Selectable reports whether id is inside the grid, not booked and
// not held by someone else.
func (inv *Inventory) Selectable(id model.SeatID) bool {
	if !inv.Contains(id) || inv.Booked(id) {
		return false
	}
	_, held := inv.held[id]
	return !held
}

// BookedSeats returns the booked ids in row-major order.
func (inv *Inventory) BookedSeats() []model.SeatID {
	out := make([]model.SeatID, 0, len(inv.booked))
	for r := 0; r < inv.rows; r++ {
		for c := 0; c < inv.seatsPerRow; c++ {
			if id := SeatID(r, c); inv.Booked(id) {
				out = append(out, id)
			}
		}
	}
	return out
}

// Status returns the display state of id given the current selection.
// Booked wins over held, held over selected.
func (inv *Inventory) Status(id model.SeatID, selection []model.SeatID) model.SeatStatus {
	if inv.Booked(id) {
		return model.SeatBooked
	}
	if _, ok := inv.held[id]; ok {
		return model.SeatHeld
	}
	for _, s := range selection {
		if s == id {
			return model.SeatSelected
		}
	}
	return model.SeatAvailable
}

// Cell is one seat of a rendered grid.
type Cell struct {
	ID     model.SeatID     `json:"id"`
	Status model.SeatStatus `json:"status"`
}

// Row is one labelled row of a rendered grid.
type Row struct {
	Label string `json:"label"`
	Seats []Cell `json:"seats"`
}

// Grid renders every seat with its status, row by row.
func (inv *Inventory) Grid(selection []model.SeatID) []Row {
	sel := make(map[model.SeatID]struct{}, len(selection))
	for _, s := range selection {
		sel[s] = struct{}{}
	}
	rows := make([]Row, 0, inv.rows)
	for r := 0; r < inv.rows; r++ {
		row := Row{Label: RowLabel(r), Seats: make([]Cell, 0, inv.seatsPerRow)}
		for c := 0; c < inv.seatsPerRow; c++ {
			id := SeatID(r, c)
			st := model.SeatAvailable
			if _, ok := sel[id]; ok {
				st = model.SeatSelected
			}
			if _, ok := inv.held[id]; ok {
				st = model.SeatHeld
			}
			if inv.Booked(id) {
				st = model.SeatBooked
			}
			row.Seats = append(row.Seats, Cell{ID: id, Status: st})
		}
		rows = append(rows, row)
	}
	return rows
}

func (inv *Inventory) canonical(id model.SeatID) (model.SeatID, bool) {
	row, col, ok := ParseSeatID(id)
	if !ok || row >= inv.rows || col >= inv.seatsPerRow {
		return "", false
	}
	return SeatID(row, col), true
}
