package ledger

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/court-scheduler/internal/db"
)

// Repository appends and reads ledger entries. Append joins the caller's
// transaction when one is present in ctx.
type Repository interface {
	Append(ctx context.Context, t *Transaction) error
	List(ctx context.Context, filter Filter) ([]*Transaction, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) Append(ctx context.Context, t *Transaction) error {
	query, args, err := psql.Insert("public.ledger_transactions").
		Columns(
			"facility_id", "booking_id", "participant_id", "amount", "direction",
			"source", "payment_method", "description", "external_reference",
		).
		Values(
			t.FacilityID, t.BookingID, t.ParticipantID, t.Amount, string(t.Direction),
			string(t.Source), t.PaymentMethod, t.Description, t.ExternalReference,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build append ledger query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&t.ID, &t.CreatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateExternal
		}
		return db.Classify(fmt.Errorf("append ledger entry failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Transaction, int, error) {
	query := psql.Select(
		"id", "facility_id", "booking_id", "participant_id", "amount", "direction",
		"source", "payment_method", "description", "external_reference", "created_at",
		"count(*) OVER() AS total_count",
	).
		From("public.ledger_transactions").
		Where(squirrel.Eq{"facility_id": filter.FacilityID})

	if !filter.From.IsZero() {
		query = query.Where(squirrel.GtOrEq{"created_at": filter.From})
	}
	if !filter.To.IsZero() {
		query = query.Where(squirrel.Lt{"created_at": filter.To})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	sql, args, err := query.OrderBy("created_at DESC", "id").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list ledger query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(fmt.Errorf("list ledger failed: %w", err))
	}
	defer rows.Close()

	var (
		entries []*Transaction
		total   int
	)
	for rows.Next() {
		var (
			t                 Transaction
			direction, source string
		)
		if err := rows.Scan(
			&t.ID, &t.FacilityID, &t.BookingID, &t.ParticipantID, &t.Amount, &direction,
			&source, &t.PaymentMethod, &t.Description, &t.ExternalReference, &t.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry failed: %w", err)
		}
		t.Direction = Direction(direction)
		t.Source = Source(source)
		entries = append(entries, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(fmt.Errorf("iterate ledger failed: %w", err))
	}
	return entries, total, nil
}
