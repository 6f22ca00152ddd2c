package block

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/court-scheduler/internal/db"
)

type Repository interface {
	Create(ctx context.Context, b *Block) error
	GetByID(ctx context.Context, id string) (*Block, error)
	List(ctx context.Context, filter Filter) ([]*Block, error)
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) Create(ctx context.Context, b *Block) error {
	query, args, err := psql.Insert("public.blocked_intervals").
		Columns("court_id", "block_date", "start_minute", "end_minute", "reason", "created_by").
		Values(b.CourtID, b.Date, b.StartMinute, b.EndMinute, b.Reason, b.CreatedBy).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create block query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt); err != nil {
		return db.Classify(fmt.Errorf("create block failed: %w", err))
	}
	return nil
}

func selectBlocks() squirrel.SelectBuilder {
	return psql.Select(
		"bi.id", "bi.court_id", "c.facility_id", "bi.block_date", "bi.start_minute", "bi.end_minute",
		"bi.reason", "COALESCE(bi.created_by, '')", "bi.created_at",
	).
		From("public.blocked_intervals bi").
		Join("public.courts c ON c.id = bi.court_id")
}

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	err := row.Scan(&b.ID, &b.CourtID, &b.FacilityID, &b.Date, &b.StartMinute, &b.EndMinute, &b.Reason, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Block, error) {
	query, args, err := selectBlocks().Where(squirrel.Eq{"bi.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get block query failed: %w", err)
	}

	b, err := scanBlock(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(fmt.Errorf("get block failed: %w", err))
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Block, error) {
	query := selectBlocks().Where(squirrel.Eq{"bi.court_id": filter.CourtID})
	if filter.Date != nil {
		query = query.Where(squirrel.Eq{"bi.block_date": *filter.Date})
	}

	sql, args, err := query.OrderBy("bi.block_date", "bi.start_minute").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list blocks query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list blocks failed: %w", err))
	}
	defer rows.Close()

	var out []*Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block failed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("public.blocked_intervals").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete block query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(fmt.Errorf("delete block failed: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
