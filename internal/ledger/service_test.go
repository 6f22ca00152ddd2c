package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
)

type memRepo struct {
	entries []*Transaction
}

func (m *memRepo) Append(ctx context.Context, t *Transaction) error {
	if t.ExternalReference != nil {
		for _, e := range m.entries {
			if e.ExternalReference != nil && *e.ExternalReference == *t.ExternalReference {
				return ErrDuplicateExternal
			}
		}
	}
	t.ID = "entry"
	m.entries = append(m.entries, t)
	return nil
}

func (m *memRepo) List(ctx context.Context, filter Filter) ([]*Transaction, int, error) {
	var out []*Transaction
	for _, e := range m.entries {
		if e.FacilityID == filter.FacilityID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

type facilities map[string]*facility.Facility

func (f facilities) GetByID(ctx context.Context, id string) (*facility.Facility, error) {
	if fac, ok := f[id]; ok {
		return fac, nil
	}
	return nil, facility.ErrNotFound
}

func newTestService() (Service, *memRepo) {
	repo := &memRepo{}
	return NewService(repo, facilities{"fac": {ID: "fac", ManagerID: "mgr"}}), repo
}

func TestRecordValidates(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	assert.ErrorIs(t, svc.Record(ctx, &Transaction{FacilityID: "fac", Amount: 0, Direction: Income, PaymentMethod: MethodCash}), ErrInvalidAmount)
	assert.ErrorIs(t, svc.Record(ctx, &Transaction{FacilityID: "fac", Amount: 10, Direction: "SIDEWAYS", PaymentMethod: MethodCash}), ErrInvalidDirection)
	assert.ErrorIs(t, svc.Record(ctx, &Transaction{Amount: 10, Direction: Income, PaymentMethod: MethodCash}), ErrFacilityRequired)
	assert.Empty(t, repo.entries)

	ref := "pay-1"
	entry := &Transaction{FacilityID: "fac", Amount: 10, Direction: Income, Source: SourceOnlinePayment, PaymentMethod: MethodOnline, ExternalReference: &ref}
	require.NoError(t, svc.Record(ctx, entry))
	assert.ErrorIs(t, svc.Record(ctx, &Transaction{FacilityID: "fac", Amount: 10, Direction: Income, PaymentMethod: MethodOnline, ExternalReference: &ref}), ErrDuplicateExternal)
	assert.Len(t, repo.entries, 1)
}

func TestManualEntries(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	manager := auth.Actor{UserID: "mgr", Role: auth.RoleManager}

	_, err := svc.AddManual(ctx, "fac", auth.Actor{UserID: "someone", Role: auth.RoleManager}, ManualEntryRequest{Amount: 500, Direction: Expense})
	assert.ErrorIs(t, err, facility.ErrForbidden)

	entry, err := svc.AddManual(ctx, "fac", manager, ManualEntryRequest{Amount: 500, Direction: Expense, Description: " nets "})
	require.NoError(t, err)
	assert.Equal(t, SourceManual, entry.Source)
	assert.Equal(t, MethodCash, entry.PaymentMethod)
	assert.Equal(t, "nets", entry.Description)

	entries, total, err := svc.List(ctx, manager, Filter{FacilityID: "fac"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, Expense, entries[0].Direction)

	_, _, err = svc.List(ctx, manager, Filter{FacilityID: "missing"})
	assert.ErrorIs(t, err, facility.ErrNotFound)
}
