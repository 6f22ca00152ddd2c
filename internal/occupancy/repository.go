package occupancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

var ErrCourtNotFound = apperror.NotFound("court not found")

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) LockCourt(ctx context.Context, courtID string) error {
	query, args, err := psql.Select("id").
		From("public.courts").
		Where(squirrel.Eq{"id": courtID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock court query failed: %w", err)
	}

	var id string
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCourtNotFound
		}
		return db.Classify(fmt.Errorf("lock court failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) BookingsOn(ctx context.Context, courtID string, date time.Time) ([]BookingRecord, error) {
	query, args, err := psql.Select("id", "start_minute", "end_minute", "status", "created_at", "recurring_slot_id").
		From("public.bookings").
		Where(squirrel.Eq{"court_id": courtID, "booking_date": date}).
		OrderBy("start_minute").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bookings occupancy query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("query bookings occupancy failed: %w", err))
	}
	defer rows.Close()

	var out []BookingRecord
	for rows.Next() {
		var b BookingRecord
		if err := rows.Scan(&b.ID, &b.Start, &b.End, &b.Status, &b.CreatedAt, &b.RecurringSlotID); err != nil {
			return nil, fmt.Errorf("scan booking occupancy failed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *pgxRepository) BlocksOn(ctx context.Context, courtID string, date time.Time) ([]BlockRecord, error) {
	query, args, err := psql.Select("id", "start_minute", "end_minute", "reason").
		From("public.blocked_intervals").
		Where(squirrel.Eq{"court_id": courtID, "block_date": date}).
		OrderBy("start_minute").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build blocks occupancy query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("query blocks occupancy failed: %w", err))
	}
	defer rows.Close()

	var out []BlockRecord
	for rows.Next() {
		var b BlockRecord
		if err := rows.Scan(&b.ID, &b.Start, &b.End, &b.Reason); err != nil {
			return nil, fmt.Errorf("scan block occupancy failed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *pgxRepository) RulesOn(ctx context.Context, courtID string, date time.Time) ([]RuleRecord, error) {
	query, args, err := psql.Select("id", "start_minute", "end_minute").
		From("public.recurring_slots").
		Where(squirrel.Eq{"court_id": courtID, "day_of_week": int(date.Weekday()), "active": true}).
		Where(squirrel.LtOrEq{"anchor_date": date}).
		OrderBy("start_minute").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rules occupancy query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("query rules occupancy failed: %w", err))
	}
	defer rows.Close()

	var out []RuleRecord
	for rows.Next() {
		var rr RuleRecord
		if err := rows.Scan(&rr.ID, &rr.Start, &rr.End); err != nil {
			return nil, fmt.Errorf("scan rule occupancy failed: %w", err)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
