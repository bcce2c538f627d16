package seatmap

import (
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// SeatID maps a zero-based row and column to the seat identifier,
// e.g. (0, 0) → "A1", (2, 4) → "C5", (26, 0) → "AA1".
func SeatID(row, col int) model.SeatID {
	return model.SeatID(RowLabel(row) + strconv.Itoa(col+1))
}

// RowLabel converts a zero-based row index into its letter label:
// A..Z, then AA, AB and so on.
func RowLabel(i int) string {
	if i < 0 { // negative indices have no label
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26                    // current base-26 digit
		res = append(res, rune('A'+rem)) // letters are collected least significant first
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// rowIndex converts a row label like A or AA into its zero-based index.
func rowIndex(label string) (int, bool) {
	if label == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(label); i++ {
		ch := label[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// ParseSeatID splits a seat identifier into its zero-based row and
// column.  Lowercase row letters are accepted.  ok is false for any
// malformed identifier; bounds are not checked here.
func ParseSeatID(id model.SeatID) (row, col int, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(string(id)))
	split := 0
	for split < len(s) && s[split] >= 'A' && s[split] <= 'Z' {
		split++
	}
	if split == 0 || split == len(s) {
		return 0, 0, false
	}
	row, ok = rowIndex(s[:split])
	if !ok {
		return 0, 0, false
	}
	digits := s[split:]
	if digits[0] == '0' { // "A01" is not a canonical id
		return 0, 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return row, n - 1, true
}

// Canonical returns the canonical spelling of id ("a1" → "A1") or
// false if id is malformed.
func Canonical(id model.SeatID) (model.SeatID, bool) {
	row, col, ok := ParseSeatID(id)
	if !ok {
		return "", false
	}
	return SeatID(row, col), true
}
