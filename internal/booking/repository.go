package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/court-scheduler/internal/db"
)

// Repository defines data access methods for bookings and participants. Every
// method joins the transaction carried by ctx, if any.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// GetForUpdate loads a booking and row-locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, b *Booking) error
	// CancelStalePending cancels PENDING bookings created before cutoff.
	CancelStalePending(ctx context.Context, cutoff, now time.Time) ([]*Booking, error)
	// CompletePlayed completes CONFIRMED bookings whose date is before the
	// current date of their facility's time zone.
	CompletePlayed(ctx context.Context, now time.Time) ([]*Booking, error)

	CreateParticipant(ctx context.Context, p *Participant) error
	GetParticipantForUpdate(ctx context.Context, id string) (*Participant, error)
	OwnerParticipant(ctx context.Context, bookingID string) (*Participant, error)
	ListParticipants(ctx context.Context, bookingID string) ([]*Participant, error)
	UpdateParticipantPaid(ctx context.Context, p *Participant) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.court_id", "c.facility_id", "b.booking_date", "b.start_minute", "b.end_minute",
	"b.total_price", "b.deposit_amount", "b.paid_amount", "b.remaining_balance",
	"b.status", "b.user_id", "b.guest_name", "b.recurring_slot_id", "b.provider_payment_id",
	"b.refund_pending", "b.cancelled_at", "b.created_at", "b.updated_at",
}

// returningColumns mirrors bookingColumns for UPDATE ... RETURNING on the bare table.
const returningColumns = "RETURNING id, court_id, " +
	"(SELECT facility_id FROM public.courts WHERE courts.id = bookings.court_id), " +
	"booking_date, start_minute, end_minute, total_price, deposit_amount, paid_amount, remaining_balance, " +
	"status, user_id, guest_name, recurring_slot_id, provider_payment_id, " +
	"refund_pending, cancelled_at, created_at, updated_at"

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var (
		b      Booking
		status string
	)
	dest := []any{
		&b.ID, &b.CourtID, &b.FacilityID, &b.Date, &b.StartMinute, &b.EndMinute,
		&b.TotalPrice, &b.DepositAmount, &b.PaidAmount, &b.RemainingBalance,
		&status, &b.UserID, &b.GuestName, &b.RecurringSlotID, &b.ProviderPaymentID,
		&b.RefundPending, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*Booking, error) {
	defer rows.Close()
	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"court_id", "booking_date", "start_minute", "end_minute",
			"total_price", "deposit_amount", "paid_amount", "remaining_balance",
			"status", "user_id", "guest_name", "recurring_slot_id",
		).
		Values(
			b.CourtID, b.Date, b.StartMinute, b.EndMinute,
			b.TotalPrice, b.DepositAmount, b.PaidAmount, b.RemainingBalance,
			string(b.Status), b.UserID, b.GuestName, b.RecurringSlotID,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return db.Classify(fmt.Errorf("create booking failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) selectBooking() squirrel.SelectBuilder {
	return psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.courts c ON c.id = b.court_id")
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	return r.getOne(ctx, r.selectBooking().Where(squirrel.Eq{"b.id": id}))
}

func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return r.getOne(ctx, r.selectBooking().Where(squirrel.Eq{"b.id": id}).Suffix("FOR UPDATE OF b"))
}

func (r *pgxRepository) getOne(ctx context.Context, q squirrel.SelectBuilder) (*Booking, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(fmt.Errorf("get booking failed: %w", err))
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b").
		Join("public.courts c ON c.id = b.court_id")

	if filter.CourtID != "" {
		query = query.Where(squirrel.Eq{"b.court_id": filter.CourtID})
	}
	if filter.FacilityID != "" {
		query = query.Where(squirrel.Eq{"c.facility_id": filter.FacilityID})
	}
	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.Date != nil {
		query = query.Where(squirrel.Eq{"b.booking_date": *filter.Date})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": string(filter.Status)})
	}

	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		orderDir = "ASC"
	}
	query = query.OrderBy("b.booking_date "+orderDir, "b.start_minute "+orderDir, "b.id")

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
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(fmt.Errorf("list bookings failed: %w", err))
	}
	defer rows.Close()

	var (
		bookings []*Booking
		total    int
	)
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(fmt.Errorf("iterate bookings failed: %w", err))
	}
	return bookings, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	query, args, err := psql.Update("public.bookings").
		Set("status", string(b.Status)).
		Set("paid_amount", b.PaidAmount).
		Set("remaining_balance", b.RemainingBalance).
		Set("provider_payment_id", b.ProviderPaymentID).
		Set("refund_pending", b.RefundPending).
		Set("cancelled_at", b.CancelledAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return db.Classify(fmt.Errorf("update booking failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) CancelStalePending(ctx context.Context, cutoff, now time.Time) ([]*Booking, error) {
	query, args, err := psql.Update("public.bookings").
		Set("status", string(StatusCancelled)).
		Set("cancelled_at", now).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": string(StatusPending)}).
		Where(squirrel.Lt{"created_at": cutoff}).
		Suffix(returningColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sweep pending query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("sweep pending bookings failed: %w", err))
	}
	return collectBookings(rows)
}

func (r *pgxRepository) CompletePlayed(ctx context.Context, now time.Time) ([]*Booking, error) {
	query, args, err := psql.Update("public.bookings").
		Set("status", string(StatusCompleted)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": string(StatusConfirmed)}).
		Where(squirrel.Expr(
			"booking_date < (SELECT (?::timestamptz AT TIME ZONE f.timezone)::date "+
				"FROM public.courts c JOIN public.facilities f ON f.id = c.facility_id "+
				"WHERE c.id = bookings.court_id)",
			now,
		)).
		Suffix(returningColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build complete played query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("complete played bookings failed: %w", err))
	}
	return collectBookings(rows)
}

// ------------------------
//   Participant methods
// ------------------------

var participantColumns = []string{"id", "booking_id", "user_id", "guest_name", "is_owner", "amount_paid", "created_at"}

func scanParticipant(row pgx.Row) (*Participant, error) {
	var p Participant
	if err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.GuestName, &p.IsOwner, &p.AmountPaid, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgxRepository) CreateParticipant(ctx context.Context, p *Participant) error {
	query, args, err := psql.Insert("public.booking_participants").
		Columns("booking_id", "user_id", "guest_name", "is_owner", "amount_paid").
		Values(p.BookingID, p.UserID, p.GuestName, p.IsOwner, p.AmountPaid).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create participant query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return db.Classify(fmt.Errorf("create participant failed: %w", err))
	}
	return nil
}

func (r *pgxRepository) getParticipant(ctx context.Context, q squirrel.SelectBuilder) (*Participant, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get participant query failed: %w", err)
	}

	p, err := scanParticipant(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, db.Classify(fmt.Errorf("get participant failed: %w", err))
	}
	return p, nil
}

func (r *pgxRepository) GetParticipantForUpdate(ctx context.Context, id string) (*Participant, error) {
	return r.getParticipant(ctx, psql.Select(participantColumns...).
		From("public.booking_participants").
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE"))
}

func (r *pgxRepository) OwnerParticipant(ctx context.Context, bookingID string) (*Participant, error) {
	return r.getParticipant(ctx, psql.Select(participantColumns...).
		From("public.booking_participants").
		Where(squirrel.Eq{"booking_id": bookingID, "is_owner": true}).
		OrderBy("created_at").
		Limit(1))
}

func (r *pgxRepository) ListParticipants(ctx context.Context, bookingID string) ([]*Participant, error) {
	query, args, err := psql.Select(participantColumns...).
		From("public.booking_participants").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("is_owner DESC", "created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list participants query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list participants failed: %w", err))
	}
	defer rows.Close()

	var out []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgxRepository) UpdateParticipantPaid(ctx context.Context, p *Participant) error {
	query, args, err := psql.Update("public.booking_participants").
		Set("amount_paid", p.AmountPaid).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update participant query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(fmt.Errorf("update participant failed: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return ErrParticipantNotFound
	}
	return nil
}
