package service

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// BookingIDPrefix starts every booking id.
const BookingIDPrefix = "BMS"

// IDGenerator mints booking ids.
type IDGenerator interface {
	NewBookingID() string
}

// UUIDBookingIDs derives ids from random (v4) UUIDs, so ids minted in
// the same instant, or on different servers, do not collide.
type UUIDBookingIDs struct{}

// NewBookingID returns "BMS" followed by 32 upper-case hex digits.
func (UUIDBookingIDs) NewBookingID() string {
	u := uuid.New()
	return BookingIDPrefix + strings.ToUpper(hex.EncodeToString(u[:]))
}
