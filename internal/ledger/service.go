package ledger

import (
	"context"
	"strings"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
)

// ManualEntryRequest is a manager-recorded income or expense.
type ManualEntryRequest struct {
	Amount        int64
	Direction     Direction
	PaymentMethod string
	Description   string
}

type Service interface {
	// Record appends an entry produced by another operation, inside its transaction.
	Record(ctx context.Context, t *Transaction) error
	AddManual(ctx context.Context, facilityID string, actor auth.Actor, req ManualEntryRequest) (*Transaction, error)
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Transaction, int, error)
}

// FacilityReader resolves the facility an entry belongs to.
type FacilityReader interface {
	GetByID(ctx context.Context, id string) (*facility.Facility, error)
}

type service struct {
	repo       Repository
	facilities FacilityReader
}

func NewService(repo Repository, facilities FacilityReader) Service {
	return &service{repo: repo, facilities: facilities}
}

func (s *service) Record(ctx context.Context, t *Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.repo.Append(ctx, t)
}

func (s *service) authorize(ctx context.Context, facilityID string, actor auth.Actor) error {
	f, err := s.facilities.GetByID(ctx, facilityID)
	if err != nil {
		return err
	}
	if !f.ManagedBy(actor) {
		return facility.ErrForbidden
	}
	return nil
}

func (s *service) AddManual(ctx context.Context, facilityID string, actor auth.Actor, req ManualEntryRequest) (*Transaction, error) {
	if err := s.authorize(ctx, facilityID, actor); err != nil {
		return nil, err
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = MethodCash
	}

	t := &Transaction{
		FacilityID:    facilityID,
		Amount:        req.Amount,
		Direction:     req.Direction,
		Source:        SourceManual,
		PaymentMethod: method,
		Description:   strings.TrimSpace(req.Description),
	}
	if err := s.Record(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Transaction, int, error) {
	if err := s.authorize(ctx, filter.FacilityID, actor); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}
