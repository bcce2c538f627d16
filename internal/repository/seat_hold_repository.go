package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticket-checkout/internal/holds"
	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// seatHoldsDDL creates the seat_holds table.  The unique key on
// (screen_id, show_time, seat_id) is what makes INSERT IGNORE a
// compare-and-set: at most one row, HELD or BOOKED, per seat per show.
const seatHoldsDDL = `CREATE TABLE IF NOT EXISTS seat_holds (
  id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  screen_id  VARCHAR(64)  NOT NULL,
  show_time  VARCHAR(32)  NOT NULL,
  seat_id    VARCHAR(16)  NOT NULL,
  owner      VARCHAR(64)  NOT NULL,
  status     ENUM('HELD','BOOKED') NOT NULL,
  expires_at DATETIME     NULL,
  created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_seat_holds_seat (screen_id, show_time, seat_id),
  KEY idx_seat_holds_expiry (status, expires_at)
)`

// SeatHoldRepo is the MySQL implementation of holds.Authority.  All
// timestamps are written and compared in UTC.
type SeatHoldRepo struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSeatHoldRepo returns a SeatHoldRepo bound to db.  A non-positive
// ttl falls back to holds.DefaultTTL.
func NewSeatHoldRepo(db *sql.DB, ttl time.Duration) *SeatHoldRepo {
	if ttl <= 0 {
		ttl = holds.DefaultTTL
	}
	return &SeatHoldRepo{db: db, ttl: ttl, now: time.Now}
}

// EnsureSchema creates the seat_holds table if it does not exist.
func (r *SeatHoldRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, seatHoldsDDL)
	return err
}

// Acquire clears a lapsed hold or the caller's own hold on the seat and
// then tries to insert a fresh one.  When another row survives the
// delete the insert is ignored and the seat is unavailable.
func (r *SeatHoldRepo) Acquire(ctx context.Context, show model.ShowKey, seat model.SeatID, owner string) (model.SeatHold, error) {
	now := r.now().UTC()
	expiresAt := now.Add(r.ttl)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SeatHold{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM seat_holds
		 WHERE screen_id = ? AND show_time = ? AND seat_id = ? AND status = 'HELD'
		   AND (expires_at <= ? OR owner = ?)`,
		show.ScreenID, show.ShowTime, string(seat), now, owner,
	); err != nil {
		return model.SeatHold{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO seat_holds (screen_id, show_time, seat_id, owner, status, expires_at)
		 VALUES (?, ?, ?, ?, 'HELD', ?)`,
		show.ScreenID, show.ShowTime, string(seat), owner, expiresAt,
	)
	if err != nil {
		return model.SeatHold{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.SeatHold{}, err
	}
	if n == 0 {
		return model.SeatHold{}, holds.ErrSeatUnavailable
	}
	if err := tx.Commit(); err != nil {
		return model.SeatHold{}, err
	}
	committed = true
	return model.SeatHold{Show: show, Seat: seat, Owner: owner, Status: model.HoldHeld, ExpiresAt: expiresAt}, nil
}

// Release deletes the owner's hold on seat, if any.
func (r *SeatHoldRepo) Release(ctx context.Context, show model.ShowKey, seat model.SeatID, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds
		 WHERE screen_id = ? AND show_time = ? AND seat_id = ? AND owner = ? AND status = 'HELD'`,
		show.ScreenID, show.ShowTime, string(seat), owner,
	)
	return err
}

// ReleaseAll deletes every hold owner has on show.
func (r *SeatHoldRepo) ReleaseAll(ctx context.Context, show model.ShowKey, owner string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE screen_id = ? AND show_time = ? AND owner = ? AND status = 'HELD'`,
		show.ScreenID, show.ShowTime, owner,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Finalize locks the owner's live holds on show, checks that every
// requested seat is among them, and flips them to BOOKED in the same
// transaction.
func (r *SeatHoldRepo) Finalize(ctx context.Context, show model.ShowKey, seats []model.SeatID, owner string) error {
	want := uniqueSeats(seats)
	if len(want) == 0 {
		return holds.ErrHoldLost
	}
	now := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT seat_id FROM seat_holds
		 WHERE screen_id = ? AND show_time = ? AND owner = ? AND status = 'HELD' AND expires_at > ?
		 FOR UPDATE`,
		show.ScreenID, show.ShowTime, owner, now,
	)
	if err != nil {
		return err
	}
	held := map[model.SeatID]bool{}
	for rows.Next() {
		var sid string
		if scanErr := rows.Scan(&sid); scanErr != nil {
			rows.Close()
			return scanErr
		}
		held[model.SeatID(sid)] = true
	}
	if err = rows.Close(); err != nil {
		return err
	}
	for _, s := range want {
		if !held[s] {
			return holds.ErrHoldLost
		}
	}

	args := make([]interface{}, 0, len(want)+3)
	args = append(args, show.ScreenID, show.ShowTime, owner)
	for _, s := range want {
		args = append(args, string(s))
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_holds SET status = 'BOOKED', expires_at = NULL
		 WHERE screen_id = ? AND show_time = ? AND owner = ? AND status = 'HELD'
		   AND seat_id IN (`+placeholders(len(want))+`)`,
		args...,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(want) {
		return holds.ErrHoldLost
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Snapshot lists booked seats and unexpired holds of show.
func (r *SeatHoldRepo) Snapshot(ctx context.Context, show model.ShowKey) ([]model.SeatHold, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id, owner, status, expires_at FROM seat_holds
		 WHERE screen_id = ? AND show_time = ? AND (status = 'BOOKED' OR expires_at > ?)
		 ORDER BY seat_id`,
		show.ScreenID, show.ShowTime, r.now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatHold
	for rows.Next() {
		var (
			sid, owner, status string
			expires            sql.NullTime
		)
		if err := rows.Scan(&sid, &owner, &status, &expires); err != nil {
			return nil, err
		}
		h := model.SeatHold{Show: show, Seat: model.SeatID(sid), Owner: owner, Status: model.HoldStatus(status)}
		if expires.Valid {
			h.ExpiresAt = expires.Time.UTC()
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Sweep deletes lapsed holds across all shows.
func (r *SeatHoldRepo) Sweep(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE status = 'HELD' AND expires_at <= ?`,
		r.now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func uniqueSeats(seats []model.SeatID) []model.SeatID {
	seen := make(map[model.SeatID]bool, len(seats))
	out := make([]model.SeatID, 0, len(seats))
	for _, s := range seats {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var _ holds.Authority = (*SeatHoldRepo)(nil)
