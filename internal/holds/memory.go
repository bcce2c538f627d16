package holds

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// MemoryAuthority keeps seat state in process memory.  It is used when
// no database is configured and in tests.
type MemoryAuthority struct {
	mu    sync.Mutex
	shows map[model.ShowKey]map[model.SeatID]model.SeatHold
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a MemoryAuthority.
type Option func(*MemoryAuthority)

// WithTTL sets the hold duration.
func WithTTL(d time.Duration) Option {
	return func(a *MemoryAuthority) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *MemoryAuthority) { a.now = now }
}

func NewMemoryAuthority(opts ...Option) *MemoryAuthority {
	a := &MemoryAuthority{
		shows: make(map[model.ShowKey]map[model.SeatID]model.SeatHold),
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *MemoryAuthority) Acquire(_ context.Context, show model.ShowKey, seat model.SeatID, owner string) (model.SeatHold, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	seats := a.showSeats(show)
	if cur, ok := seats[seat]; ok && cur.Active(now) {
		if cur.Status == model.HoldBooked || cur.Owner != owner {
			return model.SeatHold{}, ErrSeatUnavailable
		}
	}
	h := model.SeatHold{
		Show:      show,
		Seat:      seat,
		Owner:     owner,
		Status:    model.HoldHeld,
		ExpiresAt: now.Add(a.ttl),
	}
	seats[seat] = h
	return h, nil
}

func (a *MemoryAuthority) Release(_ context.Context, show model.ShowKey, seat model.SeatID, owner string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	seats := a.shows[show]
	if cur, ok := seats[seat]; ok && cur.Status == model.HoldHeld && cur.Owner == owner {
		delete(seats, seat)
	}
	return nil
}

func (a *MemoryAuthority) ReleaseAll(_ context.Context, show model.ShowKey, owner string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for id, cur := range a.shows[show] {
		if cur.Status == model.HoldHeld && cur.Owner == owner {
			delete(a.shows[show], id)
			n++
		}
	}
	return n, nil
}

func (a *MemoryAuthority) Finalize(_ context.Context, show model.ShowKey, seats []model.SeatID, owner string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(seats) == 0 {
		return ErrHoldLost
	}
	now := a.now().UTC()
	state := a.shows[show]
	for _, id := range seats {
		cur, ok := state[id]
		if !ok || cur.Status != model.HoldHeld || cur.Owner != owner || !cur.Active(now) {
			return ErrHoldLost
		}
	}
	for _, id := range seats {
		state[id] = model.SeatHold{Show: show, Seat: id, Owner: owner, Status: model.HoldBooked}
	}
	return nil
}

func (a *MemoryAuthority) Snapshot(_ context.Context, show model.ShowKey) ([]model.SeatHold, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	out := make([]model.SeatHold, 0, len(a.shows[show]))
	for _, h := range a.shows[show] {
		if h.Active(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out, nil
}

func (a *MemoryAuthority) Sweep(_ context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	n := 0
	for _, seats := range a.shows {
		for id, h := range seats {
			if h.Status == model.HoldHeld && !h.Active(now) {
				delete(seats, id)
				n++
			}
		}
	}
	return n, nil
}

// showSeats returns the state map of show, creating it on first use.
// Callers must hold a.mu.
func (a *MemoryAuthority) showSeats(show model.ShowKey) map[model.SeatID]model.SeatHold {
	seats, ok := a.shows[show]
	if !ok {
		seats = make(map[model.SeatID]model.SeatHold)
		a.shows[show] = seats
	}
	return seats
}

var _ Authority = (*MemoryAuthority)(nil)
