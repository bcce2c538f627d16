package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-checkout/internal/fare"
	"github.com/iliyamo/cinema-ticket-checkout/internal/holds"
	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
	"github.com/iliyamo/cinema-ticket-checkout/internal/queue"
	"github.com/iliyamo/cinema-ticket-checkout/internal/repository"
)

var (
	// ErrInvalidPaymentMethod is returned for anything but card or upi.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrPaymentDeclined is returned when the gateway refuses the charge.
	// The draft is kept so the customer can try again.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrCheckoutAbandoned is returned when the request went away while
	// the payment was processing.  Nothing is persisted.
	ErrCheckoutAbandoned = errors.New("checkout abandoned")
	// ErrPaymentInProgress is returned when the session already has a
	// payment processing.
	ErrPaymentInProgress = errors.New("payment already in progress")
	// ErrConfirmationMismatch is returned by Verify when the stored
	// confirmation belongs to another booking id.
	ErrConfirmationMismatch = errors.New("confirmation does not match booking id")
)

// CheckoutState is where a session's payment attempt stands.
type CheckoutState string

const (
	StateIdle       CheckoutState = "idle"
	StateProcessing CheckoutState = "processing"
	StateConfirmed  CheckoutState = "confirmed"
	StateDeclined   CheckoutState = "declined"
	StateAbandoned  CheckoutState = "abandoned"
)

// DraftStore is the session's current-draft slot.
type DraftStore interface {
	Save(ctx context.Context, session string, d model.BookingDraft) error
	Load(ctx context.Context, session string) (model.BookingDraft, error)
	Clear(ctx context.Context, session string) error
}

// ConfirmationStore is the session's latest-confirmation slot.
type ConfirmationStore interface {
	Save(ctx context.Context, session string, c model.Confirmation) error
	Load(ctx context.Context, session string) (model.Confirmation, error)
}

// CheckoutService turns a draft into a paid confirmation.
type CheckoutService struct {
	drafts        DraftStore
	confirmations ConfirmationStore
	gateway       PaymentGateway
	ids           IDGenerator
	holds         holds.Authority
	events        EventPublisher
	log           logrus.FieldLogger
	now           func() time.Time

	mu     sync.Mutex
	states map[string]CheckoutState
	wg     sync.WaitGroup
}

// CheckoutOption configures a CheckoutService.
type CheckoutOption func(*CheckoutService)

// WithHoldAuthority makes Submit book the draft's seats through auth.
func WithHoldAuthority(auth holds.Authority) CheckoutOption {
	return func(s *CheckoutService) { s.holds = auth }
}

func WithEventPublisher(p EventPublisher) CheckoutOption {
	return func(s *CheckoutService) { s.events = p }
}

func WithIDGenerator(g IDGenerator) CheckoutOption {
	return func(s *CheckoutService) { s.ids = g }
}

func WithCheckoutClock(now func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.now = now }
}

func WithCheckoutLogger(l logrus.FieldLogger) CheckoutOption {
	return func(s *CheckoutService) { s.log = l }
}

func NewCheckoutService(drafts DraftStore, confirmations ConfirmationStore, gateway PaymentGateway, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		drafts:        drafts,
		confirmations: confirmations,
		gateway:       gateway,
		ids:           UUIDBookingIDs{},
		events:        NopPublisher{},
		log:           logrus.StandardLogger(),
		now:           time.Now,
		states:        map[string]CheckoutState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PaymentSummary returns the draft awaiting payment with its fare.
// The error is repository.ErrDraftAbsent (possibly ErrDraftInvalid)
// when there is nothing to pay for.
func (s *CheckoutService) PaymentSummary(ctx context.Context, session string) (model.BookingDraft, fare.Fare, error) {
	d, err := s.drafts.Load(ctx, session)
	if err != nil {
		return model.BookingDraft{}, fare.Fare{}, err
	}
	return d, fare.ForDraft(d), nil
}

// State reports the last known checkout state of session.
func (s *CheckoutService) State(session string) CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[session]; ok {
		return st
	}
	return StateIdle
}

// Submit charges the session's draft with method and, on approval,
// books the seats, stores the confirmation and clears the draft.
//
// The charge is bound to ctx: if ctx ends first the attempt is
// abandoned and nothing is written.  Once the charge is approved and
// ctx is still live, the remaining writes run to completion even if
// the caller goes away.
func (s *CheckoutService) Submit(ctx context.Context, session string, method model.PaymentMethod) (model.Confirmation, error) {
	prev, ok := s.begin(session)
	if !ok {
		return model.Confirmation{}, ErrPaymentInProgress
	}
	final := StateIdle
	defer func() { s.end(session, final) }()

	// The draft is read only once the session is claimed, so a second
	// submit of the same draft finds it gone.
	draft, err := s.drafts.Load(ctx, session)
	if err != nil {
		final = prev
		return model.Confirmation{}, err
	}
	if !method.Valid() {
		final = prev
		return model.Confirmation{}, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	log := s.log.WithFields(logrus.Fields{
		"session": session,
		"show":    draft.Show().String(),
		"seats":   len(draft.SelectedSeats),
		"method":  method,
	})
	f := fare.ForDraft(draft)

	if err := s.renewHolds(ctx, draft, session); err != nil {
		if errors.Is(err, holds.ErrHoldLost) {
			log.Info("seat holds lost before payment")
		}
		return model.Confirmation{}, err
	}

	res, err := s.gateway.Charge(ctx, PaymentRequest{Session: session, Method: method, Amount: f.Total})
	if ctx.Err() != nil {
		final = StateAbandoned
		log.Info("checkout abandoned while processing payment")
		return model.Confirmation{}, fmt.Errorf("%w: %v", ErrCheckoutAbandoned, ctx.Err())
	}
	if err != nil {
		return model.Confirmation{}, fmt.Errorf("charge: %w", err)
	}
	if !res.Approved {
		final = StateDeclined
		log.WithField("reason", res.Reason).Info("payment declined")
		return model.Confirmation{}, fmt.Errorf("%w: %s", ErrPaymentDeclined, res.Reason)
	}

	wctx := context.WithoutCancel(ctx)
	conf := model.Confirmation{
		BookingDraft:  draft,
		BookingID:     s.ids.NewBookingID(),
		PaymentMethod: method,
		BookingDate:   s.now().UTC(),
		Status:        model.BookingConfirmed,
	}
	log = log.WithField("booking_id", conf.BookingID)

	if s.holds != nil {
		if err := s.holds.Finalize(wctx, draft.Show(), draft.SelectedSeats, session); err != nil {
			if errors.Is(err, holds.ErrHoldLost) {
				log.WithField("payment_ref", res.Reference).Warn("payment approved but seat holds were lost")
			}
			return model.Confirmation{}, fmt.Errorf("finalize seats: %w", err)
		}
	}
	if err := s.confirmations.Save(wctx, session, conf); err != nil {
		log.WithError(err).Error("seats booked but confirmation could not be stored")
		return model.Confirmation{}, fmt.Errorf("store confirmation: %w", err)
	}
	final = StateConfirmed
	if err := s.drafts.Clear(wctx, session); err != nil {
		log.WithError(err).Error("confirmation stored but draft could not be cleared")
		return conf, fmt.Errorf("clear draft: %w", err)
	}
	log.Info("booking confirmed")

	s.publish(conf)
	return conf, nil
}

// Verify returns the session's confirmation if it carries bookingID.
func (s *CheckoutService) Verify(ctx context.Context, session, bookingID string) (model.Confirmation, error) {
	c, err := s.confirmations.Load(ctx, session)
	if err != nil {
		return model.Confirmation{}, err
	}
	if bookingID == "" || c.BookingID != bookingID {
		return model.Confirmation{}, ErrConfirmationMismatch
	}
	return c, nil
}

// Wait blocks until in-flight event publishes have finished.
func (s *CheckoutService) Wait() {
	s.wg.Wait()
}

func (s *CheckoutService) publish(c model.Confirmation) {
	ev := queue.NewBookingConfirmedEvent(c)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.events.PublishBookingConfirmed(ctx, ev); err != nil {
			s.log.WithError(err).WithField("booking_id", ev.BookingID).Warn("booking event not published")
		}
	}()
}

// renewHolds re-acquires every seat of the draft for session, which
// refreshes the holds the session still has.  A seat now held or booked
// by someone else fails with holds.ErrHoldLost before any money moves.
func (s *CheckoutService) renewHolds(ctx context.Context, d model.BookingDraft, session string) error {
	if s.holds == nil {
		return nil
	}
	for _, seat := range d.SelectedSeats {
		if _, err := s.holds.Acquire(ctx, d.Show(), seat, session); err != nil {
			if errors.Is(err, holds.ErrSeatUnavailable) {
				return fmt.Errorf("%w: seat %s", holds.ErrHoldLost, seat)
			}
			return fmt.Errorf("renew seat holds: %w", err)
		}
	}
	return nil
}

// begin claims session for one payment attempt and returns the state it
// had before.  ok is false while another attempt is processing.
func (s *CheckoutService) begin(session string) (prev CheckoutState, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, known := s.states[session]
	if !known {
		prev = StateIdle
	}
	if prev == StateProcessing {
		return prev, false
	}
	s.states[session] = StateProcessing
	return prev, true
}

func (s *CheckoutService) end(session string, st CheckoutState) {
	s.mu.Lock()
	if st == StateIdle {
		delete(s.states, session)
	} else {
		s.states[session] = st
	}
	s.mu.Unlock()
}

var (
	_ DraftStore        = (*repository.DraftRepo)(nil)
	_ ConfirmationStore = (*repository.ConfirmationRepo)(nil)
)
