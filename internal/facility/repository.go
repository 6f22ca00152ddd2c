package facility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

// Repository defines data access methods for facilities and their courts.
type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id string) (*Facility, error)
	GetByMerchantID(ctx context.Context, merchantID string) (*Facility, error)
	List(ctx context.Context, filter Filter) ([]*Facility, int, error)
	UpdateSchedule(ctx context.Context, f *Facility) error
	SetCredentials(ctx context.Context, id, merchantID, encryptedToken string) error

	CreateCourt(ctx context.Context, c *Court) error
	GetCourt(ctx context.Context, id string) (*Court, error)
	ListCourts(ctx context.Context, facilityID string) ([]*Court, error)
	UpdateCourt(ctx context.Context, c *Court) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var facilityColumns = []string{
	"id", "name", "COALESCE(manager_id, '')", "timezone", "default_open_hour", "default_close_hour",
	"slot_granularity", "weekly_schedule", "cancellation_policy_hours",
	"provider_merchant_id", "COALESCE(provider_access_token, '')", "created_at", "updated_at",
}

func scanFacility(row pgx.Row, extra ...any) (*Facility, error) {
	var (
		f         Facility
		weekly    []byte
		openHour  *int16
		closeHour *int16
	)
	dest := []any{
		&f.ID, &f.Name, &f.ManagerID, &f.Timezone, &openHour, &closeHour,
		&f.SlotGranularity, &weekly, &f.CancellationPolicyHours,
		&f.ProviderMerchantID, &f.ProviderAccessToken, &f.CreatedAt, &f.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	f.DefaultOpenHour = widen(openHour)
	f.DefaultCloseHour = widen(closeHour)
	if err := decodeWeekly(weekly, &f.Weekly); err != nil {
		return nil, err
	}
	return &f, nil
}

func widen(v *int16) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// decodeWeekly accepts the empty array written by the column default.
func decodeWeekly(raw []byte, out *schedule.Weekly) error {
	var days []schedule.DayHours
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &days); err != nil {
			return fmt.Errorf("decode weekly schedule: %w", err)
		}
	}
	*out = schedule.Weekly{}
	copy(out[:], days)
	return nil
}

func encodeWeekly(w schedule.Weekly) ([]byte, error) {
	b, err := json.Marshal(w[:])
	if err != nil {
		return nil, fmt.Errorf("encode weekly schedule: %w", err)
	}
	return b, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *pgxRepository) Create(ctx context.Context, f *Facility) error {
	weekly, err := encodeWeekly(f.Weekly)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("public.facilities").
		Columns(
			"name", "manager_id", "timezone", "default_open_hour", "default_close_hour",
			"slot_granularity", "weekly_schedule", "cancellation_policy_hours",
		).
		Values(
			f.Name, nullIfEmpty(f.ManagerID), f.Timezone, f.DefaultOpenHour, f.DefaultCloseHour,
			f.SlotGranularity, weekly, f.CancellationPolicyHours,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create facility query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return db.Classify(fmt.Errorf("create facility failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Facility, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, ErrNotFound)
}

func (r *pgxRepository) GetByMerchantID(ctx context.Context, merchantID string) (*Facility, error) {
	return r.getOne(ctx, squirrel.Eq{"provider_merchant_id": merchantID}, ErrMerchantNotFound)
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Eq, notFound error) (*Facility, error) {
	query, args, err := psql.Select(facilityColumns...).
		From("public.facilities").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get facility query failed: %w", err)
	}

	f, err := scanFacility(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, db.Classify(fmt.Errorf("get facility failed: %w", err))
	}
	return f, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Facility, int, error) {
	query := psql.Select(append(facilityColumns, "count(*) OVER() AS total_count")...).
		From("public.facilities")

	if filter.ManagerID != "" {
		query = query.Where(squirrel.Eq{"manager_id": filter.ManagerID})
	}
	if filter.Name != "" {
		query = query.Where(squirrel.ILike{"name": "%" + filter.Name + "%"})
	}

	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		orderDir = "ASC"
	}
	query = query.OrderBy("created_at " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list facilities query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(fmt.Errorf("list facilities failed: %w", err))
	}
	defer rows.Close()

	var (
		facilities []*Facility
		total      int
	)
	for rows.Next() {
		f, err := scanFacility(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan facility failed: %w", err)
		}
		facilities = append(facilities, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(fmt.Errorf("iterate facilities failed: %w", err))
	}
	return facilities, total, nil
}

func (r *pgxRepository) UpdateSchedule(ctx context.Context, f *Facility) error {
	weekly, err := encodeWeekly(f.Weekly)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("public.facilities").
		Set("timezone", f.Timezone).
		Set("default_open_hour", f.DefaultOpenHour).
		Set("default_close_hour", f.DefaultCloseHour).
		Set("slot_granularity", f.SlotGranularity).
		Set("weekly_schedule", weekly).
		Set("cancellation_policy_hours", f.CancellationPolicyHours).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": f.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update facility schedule query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return db.Classify(fmt.Errorf("update facility schedule failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) SetCredentials(ctx context.Context, id, merchantID, encryptedToken string) error {
	query, args, err := psql.Update("public.facilities").
		Set("provider_merchant_id", merchantID).
		Set("provider_access_token", encryptedToken).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set credentials query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrMerchantTaken
		}
		return db.Classify(fmt.Errorf("set credentials failed: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ------------------------
//   Court methods
// ------------------------

var courtColumns = []string{"id", "facility_id", "name", "slot_duration_minutes", "created_at"}

func scanCourt(row pgx.Row) (*Court, error) {
	var c Court
	if err := row.Scan(&c.ID, &c.FacilityID, &c.Name, &c.SlotDurationMinutes, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgxRepository) CreateCourt(ctx context.Context, c *Court) error {
	query, args, err := psql.Insert("public.courts").
		Columns("facility_id", "name", "slot_duration_minutes").
		Values(c.FacilityID, c.Name, c.SlotDurationMinutes).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create court query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return db.Classify(fmt.Errorf("create court failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) GetCourt(ctx context.Context, id string) (*Court, error) {
	query, args, err := psql.Select(courtColumns...).
		From("public.courts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get court query failed: %w", err)
	}

	c, err := scanCourt(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, db.Classify(fmt.Errorf("get court failed: %w", err))
	}
	return c, nil
}

func (r *pgxRepository) ListCourts(ctx context.Context, facilityID string) ([]*Court, error) {
	query, args, err := psql.Select(courtColumns...).
		From("public.courts").
		Where(squirrel.Eq{"facility_id": facilityID}).
		OrderBy("name", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list courts query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list courts failed: %w", err))
	}
	defer rows.Close()

	var courts []*Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan court failed: %w", err)
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

func (r *pgxRepository) UpdateCourt(ctx context.Context, c *Court) error {
	query, args, err := psql.Update("public.courts").
		Set("name", c.Name).
		Set("slot_duration_minutes", c.SlotDurationMinutes).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update court query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(fmt.Errorf("update court failed: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrCourtNotFound
	}
	return nil
}
