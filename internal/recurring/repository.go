package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/court-scheduler/internal/db"
)

type Repository interface {
	Create(ctx context.Context, r *Rule) error
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context, filter Filter) ([]*Rule, int, error)
	Deactivate(ctx context.Context, id string) error
	// LastMaterializedDate returns the latest booking date generated from the
	// rule, or nil when nothing has been generated yet.
	LastMaterializedDate(ctx context.Context, id string) (*time.Time, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) Create(ctx context.Context, rule *Rule) error {
	query, args, err := psql.Insert("public.recurring_slots").
		Columns("court_id", "user_id", "day_of_week", "start_minute", "end_minute", "anchor_date", "price", "slot_type", "active").
		Values(rule.CourtID, rule.UserID, int(rule.DayOfWeek), rule.StartMinute, rule.EndMinute, rule.AnchorDate, rule.Price, string(rule.Type), rule.Active).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create recurring slot query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&rule.ID, &rule.CreatedAt); err != nil {
		return db.Classify(fmt.Errorf("create recurring slot failed: %w", err))
	}
	return nil
}

func selectRules() squirrel.SelectBuilder {
	return psql.Select(
		"rs.id", "rs.court_id", "c.facility_id", "rs.user_id", "rs.day_of_week", "rs.start_minute",
		"rs.end_minute", "rs.anchor_date", "rs.price", "rs.slot_type", "rs.active", "rs.created_at",
	).
		From("public.recurring_slots rs").
		Join("public.courts c ON c.id = rs.court_id")
}

func scanRule(row pgx.Row, extra ...any) (*Rule, error) {
	var (
		rule    Rule
		weekday int16
		typ     string
	)
	dest := append([]any{
		&rule.ID, &rule.CourtID, &rule.FacilityID, &rule.UserID, &weekday, &rule.StartMinute,
		&rule.EndMinute, &rule.AnchorDate, &rule.Price, &typ, &rule.Active, &rule.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rule.DayOfWeek = time.Weekday(weekday)
	rule.Type = Type(typ)
	return &rule, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	query, args, err := selectRules().Where(squirrel.Eq{"rs.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get recurring slot query failed: %w", err)
	}

	rule, err := scanRule(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(fmt.Errorf("get recurring slot failed: %w", err))
	}
	return rule, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Rule, int, error) {
	query := selectRules().Column("count(*) OVER()")
	if filter.CourtID != "" {
		query = query.Where(squirrel.Eq{"rs.court_id": filter.CourtID})
	}
	if filter.FacilityID != "" {
		query = query.Where(squirrel.Eq{"c.facility_id": filter.FacilityID})
	}
	if filter.ActiveOnly {
		query = query.Where(squirrel.Eq{"rs.active": true})
	}

	offset := (filter.Page - 1) * filter.PageSize
	sql, args, err := query.
		OrderBy("rs.day_of_week", "rs.start_minute", "rs.created_at").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list recurring slots query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(fmt.Errorf("list recurring slots failed: %w", err))
	}
	defer rows.Close()

	var (
		rules []*Rule
		total int
	)
	for rows.Next() {
		rule, err := scanRule(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan recurring slot failed: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(fmt.Errorf("iterate recurring slots failed: %w", err))
	}
	return rules, total, nil
}

func (r *pgxRepository) Deactivate(ctx context.Context, id string) error {
	query, args, err := psql.Update("public.recurring_slots").
		Set("active", false).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate recurring slot query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(fmt.Errorf("deactivate recurring slot failed: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) LastMaterializedDate(ctx context.Context, id string) (*time.Time, error) {
	query, args, err := psql.Select("max(booking_date)").
		From("public.bookings").
		Where(squirrel.Eq{"recurring_slot_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build last materialized query failed: %w", err)
	}

	var last *time.Time
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&last); err != nil {
		return nil, db.Classify(fmt.Errorf("query last materialized date failed: %w", err))
	}
	return last, nil
}
