package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-checkout/internal/catalog"
	"github.com/iliyamo/cinema-ticket-checkout/internal/holds"
	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
	"github.com/iliyamo/cinema-ticket-checkout/internal/seatmap"
)

// ErrEmptySelection is returned when proceeding to payment with no seats.
var ErrEmptySelection = errors.New("no seats selected")

// Catalog resolves booking-view addresses.
type Catalog interface {
	Resolve(movieID, screenID, showTime string) (catalog.Showing, error)
}

// Summary is the booking summary shown beside the seat map.  Amount is
// before the convenience fee.
type Summary struct {
	SelectedSeats []model.SeatID  `json:"selectedSeats"`
	TicketCount   int             `json:"ticketCount"`
	PricePerSeat  decimal.Decimal `json:"pricePerSeat"`
	Amount        decimal.Decimal `json:"amount"`
}

// SeatMapView is everything the seat booking view renders.
type SeatMapView struct {
	MovieID         string        `json:"movieId"`
	MovieTitle      string        `json:"movieTitle"`
	TheatreName     string        `json:"theatreName"`
	TheatreLocation string        `json:"theatreLocation"`
	ScreenID        string        `json:"screenId"`
	ScreenName      string        `json:"screenName"`
	ShowTime        string        `json:"showTime"`
	Rows            []seatmap.Row `json:"rows"`
	Summary         Summary       `json:"summary"`
}

type viewKey struct {
	session string
	show    model.ShowKey
}

// seatView is one session's open seat map for one show.
type seatView struct {
	mu       sync.Mutex
	showing  catalog.Showing
	base     *seatmap.Inventory
	engine   *seatmap.Engine
	summary  Summary
	lastUsed time.Time
}

// BookingService owns the per-session selection engines and hands the
// final selection over to the draft slot.
type BookingService struct {
	catalog Catalog
	drafts  DraftStore
	holds   holds.Authority
	log     logrus.FieldLogger
	now     func() time.Time

	mu    sync.Mutex
	views map[viewKey]*seatView
}

// NewBookingService returns a booking service.  auth may be nil, in
// which case the catalog's booked seats are the only constraint.
func NewBookingService(cat Catalog, drafts DraftStore, auth holds.Authority, log logrus.FieldLogger) *BookingService {
	return &BookingService{
		catalog: cat,
		drafts:  drafts,
		holds:   auth,
		log:     log,
		now:     time.Now,
		views:   map[viewKey]*seatView{},
	}
}

// OpenShow returns the seat map of a show for session, creating the
// session's selection engine on first visit.  Catalog misses surface
// as catalog.ErrMovieNotFound, ErrScreenNotFound or ErrShowtimeNotFound.
func (s *BookingService) OpenShow(ctx context.Context, session, movieID, screenID, showTime string) (SeatMapView, error) {
	v, err := s.view(ctx, session, movieID, screenID, showTime)
	if err != nil {
		return SeatMapView{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := s.refresh(ctx, v, session); err != nil {
		return SeatMapView{}, err
	}
	return v.render(), nil
}

// ToggleSeat applies a click on seat.  With a hold authority, selecting
// acquires a hold first and deselecting releases it.  A click on a
// booked, held or unknown seat leaves the selection unchanged; changed
// reports whether it moved.
func (s *BookingService) ToggleSeat(ctx context.Context, session, movieID, screenID, showTime string, seat model.SeatID) (view SeatMapView, changed bool, err error) {
	v, err := s.view(ctx, session, movieID, screenID, showTime)
	if err != nil {
		return SeatMapView{}, false, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := s.refresh(ctx, v, session); err != nil {
		return SeatMapView{}, false, err
	}

	id, ok := seatmap.Canonical(seat)
	if !ok {
		return v.render(), false, nil
	}
	show := v.engine.Show()
	log := s.log.WithFields(logrus.Fields{"session": session, "show": show.String(), "seat": id})

	if v.engine.IsSelected(id) {
		changed = v.engine.Toggle(id)
		if s.holds != nil {
			if rerr := s.holds.Release(ctx, show, id, session); rerr != nil {
				log.WithError(rerr).Warn("release seat hold failed")
			}
		}
		return v.render(), changed, nil
	}

	if !v.engine.Inventory().Selectable(id) {
		return v.render(), false, nil
	}
	if s.holds != nil {
		if _, err := s.holds.Acquire(ctx, show, id, session); err != nil {
			if errors.Is(err, holds.ErrSeatUnavailable) {
				log.Debug("seat selection rejected")
				return v.render(), false, nil
			}
			return SeatMapView{}, false, err
		}
	}
	changed = v.engine.Toggle(id)
	if !changed && s.holds != nil {
		if rerr := s.holds.Release(ctx, show, id, session); rerr != nil {
			log.WithError(rerr).Warn("release rejected seat hold failed")
		}
	}
	return v.render(), changed, nil
}

// ProceedToPayment snapshots the session's selection for the show into
// a draft, overwriting any earlier draft, and returns it.
func (s *BookingService) ProceedToPayment(ctx context.Context, session, movieID, screenID, showTime string) (model.BookingDraft, error) {
	showing, err := s.catalog.Resolve(movieID, screenID, showTime)
	if err != nil {
		return model.BookingDraft{}, err
	}
	s.mu.Lock()
	v, ok := s.views[viewKey{session: session, show: showing.Key()}]
	s.mu.Unlock()
	if !ok {
		return model.BookingDraft{}, ErrEmptySelection
	}

	v.mu.Lock()
	err = s.refresh(ctx, v, session)
	seats := v.engine.Selection()
	v.lastUsed = s.now()
	v.mu.Unlock()
	if err != nil {
		return model.BookingDraft{}, err
	}
	if len(seats) == 0 {
		return model.BookingDraft{}, ErrEmptySelection
	}

	price := showing.Screen.Price
	d := model.BookingDraft{
		MovieID:       showing.Movie.ID,
		MovieTitle:    showing.Movie.Title,
		TheatreName:   showing.Theatre.Name,
		ScreenName:    showing.Screen.ScreenName,
		ScreenID:      showing.Screen.ScreenID,
		ShowTime:      showing.ShowTime,
		SelectedSeats: seats,
		PricePerSeat:  price,
		TotalAmount:   price.Mul(decimal.NewFromInt(int64(len(seats)))),
	}
	if err := s.drafts.Save(ctx, session, d); err != nil {
		return model.BookingDraft{}, err
	}
	return d, nil
}

// Forget drops every open seat map of session.  Holds are left to the
// authority: booked seats stay booked and the rest lapse.
func (s *BookingService) Forget(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.views {
		if k.session == session {
			delete(s.views, k)
		}
	}
}

// Prune drops seat maps that have not been used for maxIdle.
func (s *BookingService) Prune(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.views {
		v.mu.Lock()
		idle := v.lastUsed.Before(cutoff)
		v.mu.Unlock()
		if idle {
			delete(s.views, k)
			n++
		}
	}
	return n
}

// view returns the session's seat map for the show, building a fresh
// engine on first use.  A fresh engine starts empty, so holds the
// session still has on the show from an earlier engine are released.
// Callers lock the view and call refresh before using the engine.
func (s *BookingService) view(ctx context.Context, session, movieID, screenID, showTime string) (*seatView, error) {
	showing, err := s.catalog.Resolve(movieID, screenID, showTime)
	if err != nil {
		return nil, err
	}
	key := viewKey{session: session, show: showing.Key()}

	s.mu.Lock()
	v, ok := s.views[key]
	s.mu.Unlock()
	if ok {
		v.mu.Lock()
		v.lastUsed = s.now()
		v.mu.Unlock()
		return v, nil
	}

	if s.holds != nil {
		if _, err := s.holds.ReleaseAll(ctx, key.show, session); err != nil {
			return nil, err
		}
	}

	base := seatmap.NewInventory(showing.Screen.SeatLayout)
	v = &seatView{showing: showing, base: base, engine: seatmap.NewEngine(key.show, base), lastUsed: s.now()}
	v.summary = summarize(nil, showing.Screen.Price)
	v.engine.OnChange(func(sel []model.SeatID) {
		v.summary = summarize(sel, showing.Screen.Price)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.views[key]; ok {
		return existing, nil
	}
	s.views[key] = v
	return v, nil
}

// refresh overlays the authority's current holds on the view's engine.
// It must be called with v.mu held.
func (s *BookingService) refresh(ctx context.Context, v *seatView, session string) error {
	if s.holds == nil {
		return nil
	}
	records, err := s.holds.Snapshot(ctx, v.engine.Show())
	if err != nil {
		return err
	}
	v.engine.Rebase(v.base.WithHolds(records, session, s.now()))
	return nil
}

func summarize(sel []model.SeatID, price decimal.Decimal) Summary {
	if sel == nil {
		sel = []model.SeatID{}
	}
	return Summary{
		SelectedSeats: sel,
		TicketCount:   len(sel),
		PricePerSeat:  price,
		Amount:        price.Mul(decimal.NewFromInt(int64(len(sel)))),
	}
}

// render must be called with v.mu held.
func (v *seatView) render() SeatMapView {
	return SeatMapView{
		MovieID:         v.showing.Movie.ID,
		MovieTitle:      v.showing.Movie.Title,
		TheatreName:     v.showing.Theatre.Name,
		TheatreLocation: v.showing.Theatre.Location,
		ScreenID:        v.showing.Screen.ScreenID,
		ScreenName:      v.showing.Screen.ScreenName,
		ShowTime:        v.showing.ShowTime,
		Rows:            v.engine.Grid(),
		Summary:         v.summary,
	}
}
