package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/example/spinbook/internal/db"
	"github.com/example/spinbook/internal/domain/booking"
)

// AttemptRepo is the append-only attempt log in booking_attempts.
type AttemptRepo struct{ db *db.DB }

var _ booking.Reporter = (*AttemptRepo)(nil)

func NewAttemptRepo(d *db.DB) *AttemptRepo { return &AttemptRepo{db: d} }

func (r *AttemptRepo) Record(ctx context.Context, rec booking.AttemptRecord) error {
	err := r.db.Exec(ctx, `
		INSERT INTO booking_attempts (id, attempted_at, location, session, seat, outcome, step, detail, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, rec.ID, rec.Timestamp.UTC(), rec.Location, rec.Session, rec.Seat,
		string(rec.Outcome), rec.Step, rec.Detail, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert attempt %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the most recent attempts, newest first.
func (r *AttemptRepo) List(ctx context.Context, limit int) ([]booking.AttemptRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, attempted_at, location, session, seat, outcome, step, detail, duration_ms
		FROM booking_attempts
		ORDER BY attempted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []booking.AttemptRecord
	for rows.Next() {
		var (
			rec     booking.AttemptRecord
			outcome string
			ms      int64
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Location, &rec.Session, &rec.Seat,
			&outcome, &rec.Step, &rec.Detail, &ms); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Outcome = booking.OutcomeKind(outcome)
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
