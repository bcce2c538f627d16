package seatmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

func ids(s ...string) []model.SeatID {
	out := make([]model.SeatID, 0, len(s))
	for _, v := range s {
		out = append(out, model.SeatID(v))
	}
	return out
}

func TestSeatID(t *testing.T) {
	cases := []struct {
		row, col int
		want     model.SeatID
	}{
		{0, 0, "A1"},
		{2, 4, "C5"},
		{25, 9, "Z10"},
		{26, 0, "AA1"},
		{27, 2, "AB3"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeatID(tc.row, tc.col))
		row, col, ok := ParseSeatID(tc.want)
		require.True(t, ok, tc.want)
		assert.Equal(t, tc.row, row)
		assert.Equal(t, tc.col, col)
	}
}

func TestParseSeatIDRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "A", "1", "A0", "A01", "1A", "A-1", "A+1", "Ä1"} {
		_, _, ok := ParseSeatID(model.SeatID(raw))
		assert.False(t, ok, raw)
	}
	c, ok := Canonical("b7")
	require.True(t, ok)
	assert.Equal(t, model.SeatID("B7"), c)
}

func TestEngineToggleSequence(t *testing.T) {
	inv := NewInventory(model.SeatLayout{Rows: 2, SeatsPerRow: 3, BookedSeats: ids("A2")})
	e := NewEngine(model.ShowKey{ScreenID: "s1", ShowTime: "10:00 AM"}, inv)

	assert.False(t, e.Toggle("A2"))
	assert.Empty(t, e.Selection())

	assert.True(t, e.Toggle("A1"))
	assert.Equal(t, ids("A1"), e.Selection())

	assert.True(t, e.Toggle("B3"))
	assert.Equal(t, ids("A1", "B3"), e.Selection())

	assert.True(t, e.Toggle("A1"))
	assert.Equal(t, ids("B3"), e.Selection())
}

func TestEngineRejectsOutOfGrid(t *testing.T) {
	e := NewEngine(model.ShowKey{}, NewInventory(model.SeatLayout{Rows: 2, SeatsPerRow: 3}))
	assert.False(t, e.Toggle("C1"))
	assert.False(t, e.Toggle("A4"))
	assert.False(t, e.Toggle("garbage"))
	assert.Empty(t, e.Selection())
}

func TestEngineOddTogglesSelect(t *testing.T) {
	e := NewEngine(model.ShowKey{}, NewInventory(model.SeatLayout{Rows: 3, SeatsPerRow: 3}))
	for n := 1; n <= 6; n++ {
		e.Toggle("B2")
		assert.Equal(t, n%2 == 1, e.IsSelected("B2"), "after %d toggles", n)
	}
}

func TestEngineDeselectKeepsOrder(t *testing.T) {
	e := NewEngine(model.ShowKey{}, NewInventory(model.SeatLayout{Rows: 1, SeatsPerRow: 5}))
	for _, id := range ids("A3", "A1", "A5", "A2") {
		require.True(t, e.Toggle(id))
	}
	e.Toggle("A1")
	assert.Equal(t, ids("A3", "A5", "A2"), e.Selection())
}

func TestEngineObservers(t *testing.T) {
	e := NewEngine(model.ShowKey{}, NewInventory(model.SeatLayout{Rows: 1, SeatsPerRow: 3, BookedSeats: ids("A3")}))
	var seen [][]model.SeatID
	e.OnChange(func(sel []model.SeatID) { seen = append(seen, sel) })

	e.Toggle("A1")
	e.Toggle("A3") // booked, no notification
	e.Toggle("a2")

	require.Len(t, seen, 2)
	assert.Equal(t, ids("A1"), seen[0])
	assert.Equal(t, ids("A1", "A2"), seen[1])

	// observers get copies
	seen[1][0] = "Z9"
	assert.Equal(t, ids("A1", "A2"), e.Selection())
}

func TestSelectionIsCopy(t *testing.T) {
	e := NewEngine(model.ShowKey{}, NewInventory(model.SeatLayout{Rows: 1, SeatsPerRow: 2}))
	e.Toggle("A1")
	sel := e.Selection()
	sel[0] = "A2"
	assert.Equal(t, ids("A1"), e.Selection())
}

func TestStatusPrecedence(t *testing.T) {
	inv := NewInventory(model.SeatLayout{Rows: 2, SeatsPerRow: 2, BookedSeats: ids("A1")})
	assert.Equal(t, model.SeatBooked, inv.Status("A1", ids("A1")))
	assert.Equal(t, model.SeatSelected, inv.Status("A2", ids("A2")))
	assert.Equal(t, model.SeatAvailable, inv.Status("B1", ids("A2")))
}

func TestWithHolds(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	show := model.ShowKey{ScreenID: "s1", ShowTime: "10:00 AM"}
	base := NewInventory(model.SeatLayout{Rows: 2, SeatsPerRow: 2})
	inv := base.WithHolds([]model.SeatHold{
		{Show: show, Seat: "A1", Owner: "other", Status: model.HoldHeld, ExpiresAt: now.Add(time.Minute)},
		{Show: show, Seat: "A2", Owner: "me", Status: model.HoldHeld, ExpiresAt: now.Add(time.Minute)},
		{Show: show, Seat: "B1", Owner: "other", Status: model.HoldHeld, ExpiresAt: now.Add(-time.Second)},
		{Show: show, Seat: "B2", Owner: "other", Status: model.HoldBooked},
	}, "me", now)

	assert.Equal(t, model.SeatHeld, inv.Status("A1", nil))
	assert.Equal(t, model.SeatAvailable, inv.Status("A2", nil))
	assert.Equal(t, model.SeatAvailable, inv.Status("B1", nil))
	assert.Equal(t, model.SeatBooked, inv.Status("B2", nil))
	assert.False(t, base.Booked("B2"), "overlay must not touch the base inventory")

	e := NewEngine(show, inv)
	assert.False(t, e.Toggle("A1"))
	assert.True(t, e.Toggle("A2"))
	assert.False(t, e.Toggle("B2"))
}

func TestGrid(t *testing.T) {
	e := NewEngine(model.ShowKey{}, NewInventory(model.SeatLayout{Rows: 2, SeatsPerRow: 2, BookedSeats: ids("B2")}))
	e.Toggle("A2")
	grid := e.Grid()
	require.Len(t, grid, 2)
	assert.Equal(t, "A", grid[0].Label)
	assert.Equal(t, []Cell{{"A1", model.SeatAvailable}, {"A2", model.SeatSelected}}, grid[0].Seats)
	assert.Equal(t, []Cell{{"B1", model.SeatAvailable}, {"B2", model.SeatBooked}}, grid[1].Seats)
	assert.Equal(t, ids("B2"), e.Inventory().BookedSeats())
}

func TestRebaseDropsLostSeats(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	show := model.ShowKey{ScreenID: "s1", ShowTime: "10:00 AM"}
	base := NewInventory(model.SeatLayout{Rows: 1, SeatsPerRow: 3})
	e := NewEngine(show, base)
	var seen [][]model.SeatID
	e.OnChange(func(sel []model.SeatID) { seen = append(seen, sel) })

	require.True(t, e.Toggle("A1"))
	require.True(t, e.Toggle("A2"))

	// nothing lost: no notification
	e.Rebase(base.WithHolds(nil, "me", now))
	assert.Len(t, seen, 2)

	e.Rebase(base.WithHolds([]model.SeatHold{
		{Show: show, Seat: "A1", Owner: "other", Status: model.HoldHeld, ExpiresAt: now.Add(time.Minute)},
	}, "me", now))
	assert.Equal(t, ids("A2"), e.Selection())
	require.Len(t, seen, 3)
	assert.Equal(t, ids("A2"), seen[2])
	assert.Equal(t, model.SeatHeld, e.Status("A1"))

	// once released elsewhere the seat is selectable again
	e.Rebase(base)
	assert.True(t, e.Toggle("A1"))
}
