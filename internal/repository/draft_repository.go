package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

func draftKey(session string) string        { return "draft:" + session }
func confirmationKey(session string) string { return "confirmation:" + session }

// DraftRepo is the session's "current draft" slot.  A save always
// overwrites the previous draft.
type DraftRepo struct {
	slots SlotStore
	ttl   time.Duration
}

// NewDraftRepo returns a draft slot over slots.  A zero ttl keeps
// drafts until they are cleared.
func NewDraftRepo(slots SlotStore, ttl time.Duration) *DraftRepo {
	return &DraftRepo{slots: slots, ttl: ttl}
}

func (r *DraftRepo) Save(ctx context.Context, session string, d model.BookingDraft) error {
	if session == "" {
		return ErrNoSession
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return r.slots.Set(ctx, draftKey(session), b, r.ttl)
}

// Load returns the session's draft.  The error is ErrDraftAbsent when
// nothing is stored, ErrDraftInvalid when the stored value is corrupt,
// or a backend error.
func (r *DraftRepo) Load(ctx context.Context, session string) (model.BookingDraft, error) {
	var d model.BookingDraft
	if session == "" {
		return d, ErrDraftAbsent
	}
	raw, err := r.slots.Get(ctx, draftKey(session))
	if errors.Is(err, errSlotEmpty) {
		return d, ErrDraftAbsent
	}
	if err != nil {
		return d, fmt.Errorf("load draft: %w", err)
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.BookingDraft{}, fmt.Errorf("%w: %v", ErrDraftInvalid, err)
	}
	if err := d.Validate(); err != nil {
		return model.BookingDraft{}, fmt.Errorf("%w: %v", ErrDraftInvalid, err)
	}
	return d, nil
}

func (r *DraftRepo) Clear(ctx context.Context, session string) error {
	if session == "" {
		return nil
	}
	return r.slots.Del(ctx, draftKey(session))
}

// ConfirmationRepo is the session's "latest confirmation" slot.
type ConfirmationRepo struct {
	slots SlotStore
	ttl   time.Duration
}

func NewConfirmationRepo(slots SlotStore, ttl time.Duration) *ConfirmationRepo {
	return &ConfirmationRepo{slots: slots, ttl: ttl}
}

func (r *ConfirmationRepo) Save(ctx context.Context, session string, c model.Confirmation) error {
	if session == "" {
		return ErrNoSession
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	return r.slots.Set(ctx, confirmationKey(session), b, r.ttl)
}

// Load returns the session's latest confirmation, or
// ErrConfirmationAbsent when there is none or it cannot be read.
func (r *ConfirmationRepo) Load(ctx context.Context, session string) (model.Confirmation, error) {
	var c model.Confirmation
	if session == "" {
		return c, ErrConfirmationAbsent
	}
	raw, err := r.slots.Get(ctx, confirmationKey(session))
	if errors.Is(err, errSlotEmpty) {
		return c, ErrConfirmationAbsent
	}
	if err != nil {
		return c, fmt.Errorf("load confirmation: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.Confirmation{}, fmt.Errorf("%w: %v", ErrConfirmationAbsent, err)
	}
	if err := c.Validate(); err != nil {
		return model.Confirmation{}, fmt.Errorf("%w: %v", ErrConfirmationAbsent, err)
	}
	return c, nil
}
