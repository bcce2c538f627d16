// Package repository persists checkout state: the per-session draft
// and confirmation slots, and the MySQL-backed seat hold authority.
// The sentinel errors below let handlers distinguish "nothing to show"
// from real failures without parsing messages.
package repository

import (
	"errors"
	"fmt"
)

// ErrDraftAbsent is returned by DraftRepo.Load when the session has no
// draft.  The payment view treats it as "go back to the home view".
var ErrDraftAbsent = errors.New("booking draft absent")

// ErrDraftInvalid is returned when a stored draft cannot be decoded or
// fails validation.  It wraps ErrDraftAbsent, so callers that only
// check for absence treat a corrupt draft the same way.
var ErrDraftInvalid = fmt.Errorf("%w: stored draft is invalid", ErrDraftAbsent)

// ErrConfirmationAbsent is returned when the session has no
// confirmation, or when the stored one is unreadable.
var ErrConfirmationAbsent = errors.New("confirmation absent")

// ErrNoSession is returned when a slot is addressed without a session id.
var ErrNoSession = errors.New("missing session id")

// errSlotEmpty is the backend-level "key not found".
var errSlotEmpty = errors.New("slot empty")
