package seatmap

import (
	"sync"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// Engine holds the ordered seat selection for one screening.  An
// engine is bound to its ShowKey for life; a new showtime gets a new
// engine.  It is safe for concurrent use.  Observers run while the
// engine is locked and must not call back into it.
type Engine struct {
	show model.ShowKey

	mu        sync.Mutex
	inv       *Inventory
	selected  []model.SeatID
	observers []func([]model.SeatID)
}

// NewEngine returns an engine with an empty selection.
func NewEngine(show model.ShowKey, inv *Inventory) *Engine {
	return &Engine{show: show, inv: inv}
}

func (e *Engine) Show() model.ShowKey { return e.show }

// Inventory returns the inventory the engine currently checks against.
func (e *Engine) Inventory() *Inventory {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inv
}

// Rebase swaps in a newer inventory of the same screening, such as one
// overlaid with a fresh hold snapshot.  Selected seats that are no
// longer selectable are dropped, and observers are told if that
// changed the selection.
func (e *Engine) Rebase(inv *Inventory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inv = inv
	kept := e.selected[:0:0]
	for _, id := range e.selected {
		if inv.Selectable(id) {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(e.selected) {
		return
	}
	e.selected = kept
	e.notify()
}

// OnChange registers fn to receive a copy of the selection after every
// toggle that changed it.
func (e *Engine) OnChange(fn func([]model.SeatID)) {
	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.mu.Unlock()
}

// Toggle flips id in or out of the selection.  Booked, held and
// out-of-grid seats are ignored.  Deselecting keeps the order of the
// remaining seats; selecting appends.  It reports whether the
// selection changed.
func (e *Engine) Toggle(id model.SeatID) bool {
	id, ok := Canonical(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexOf(id); i >= 0 {
		e.selected = append(e.selected[:i:i], e.selected[i+1:]...)
	} else {
		if !e.inv.Selectable(id) {
			return false
		}
		e.selected = append(e.selected, id)
	}
	e.notify()
	return true
}

// Selection returns a copy of the selected ids in the order they were
// picked.
func (e *Engine) Selection() []model.SeatID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// IsSelected reports whether id is currently selected.
func (e *Engine) IsSelected(id model.SeatID) bool {
	id, ok := Canonical(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indexOf(id) >= 0
}

// Status returns the display state of id.
func (e *Engine) Status(id model.SeatID) model.SeatStatus {
	if c, ok := Canonical(id); ok {
		id = c
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inv.Status(id, e.selected)
}

// Grid renders the seat map with the current selection.
func (e *Engine) Grid() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inv.Grid(e.selected)
}

func (e *Engine) indexOf(id model.SeatID) int {
	for i, s := range e.selected {
		if s == id {
			return i
		}
	}
	return -1
}

func (e *Engine) notify() {
	for _, fn := range e.observers {
		fn(e.snapshot())
	}
}

func (e *Engine) snapshot() []model.SeatID {
	out := make([]model.SeatID, len(e.selected))
	copy(out, e.selected)
	return out
}
