package occupancy

import (
	"context"
	"fmt"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
)

// DefaultPendingGrace is how long an unpaid PENDING booking holds its slot.
const DefaultPendingGrace = 5 * time.Minute

const (
	statusPending   = "PENDING"
	statusCancelled = "CANCELLED"
)

// BookingRecord is a booking row as seen by the aggregator, cancelled ones included.
type BookingRecord struct {
	ID              string
	Start           int
	End             int
	Status          string
	CreatedAt       time.Time
	RecurringSlotID *string
}

type BlockRecord struct {
	ID     string
	Start  int
	End    int
	Reason string
}

// RuleRecord is an active recurring rule that applies to the requested date.
type RuleRecord struct {
	ID    string
	Start int
	End   int
}

// Repository reads the three occupancy sources of a court/date and serializes
// writers per court.
type Repository interface {
	// LockCourt takes a row lock on the court for the current transaction.
	LockCourt(ctx context.Context, courtID string) error
	BookingsOn(ctx context.Context, courtID string, date time.Time) ([]BookingRecord, error)
	BlocksOn(ctx context.Context, courtID string, date time.Time) ([]BlockRecord, error)
	// RulesOn returns active rules of the court whose weekday matches date and
	// whose anchor date is on or before it.
	RulesOn(ctx context.Context, courtID string, date time.Time) ([]RuleRecord, error)
}

// Options narrows what Collect returns.
type Options struct {
	// ExcludeRuleID leaves out the projection of one rule, used while that
	// rule's own occurrences are being generated or validated.
	ExcludeRuleID string
	// SkipRules leaves out projected rules entirely.
	SkipRules bool
}

// Aggregator merges bookings, blocks and projected rules into one list of sources.
type Aggregator struct {
	repo  Repository
	clock clock.Clock
	grace time.Duration
}

func NewAggregator(repo Repository, clk clock.Clock, grace time.Duration) *Aggregator {
	if grace <= 0 {
		grace = DefaultPendingGrace
	}
	return &Aggregator{repo: repo, clock: clk, grace: grace}
}

// PendingGrace returns the configured grace window.
func (a *Aggregator) PendingGrace() time.Duration {
	return a.grace
}

// LockCourt serializes check-then-write sequences for one court.
func (a *Aggregator) LockCourt(ctx context.Context, courtID string) error {
	return a.repo.LockCourt(ctx, courtID)
}

// Collect returns every source occupying courtID on date.
func (a *Aggregator) Collect(ctx context.Context, courtID string, date time.Time, opts Options) ([]Source, error) {
	bookings, err := a.repo.BookingsOn(ctx, courtID, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	blocks, err := a.repo.BlocksOn(ctx, courtID, date)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	var rules []RuleRecord
	if !opts.SkipRules {
		rules, err = a.repo.RulesOn(ctx, courtID, date)
		if err != nil {
			return nil, fmt.Errorf("load recurring rules: %w", err)
		}
	}

	staleBefore := a.clock.Now().Add(-a.grace)
	materialized := make(map[string]bool)

	sources := make([]Source, 0, len(bookings)+len(blocks)+len(rules))
	for _, b := range bookings {
		// Any row linked to a rule marks that occurrence as materialized, even
		// when it was later cancelled: cancelling an occurrence frees the slot.
		if b.RecurringSlotID != nil {
			materialized[*b.RecurringSlotID] = true
		}
		if !a.occupies(b, staleBefore) {
			continue
		}
		sources = append(sources, BookingSource{
			BookingID: b.ID,
			Span:      Interval{Start: b.Start, End: b.End},
			Status:    b.Status,
		})
	}

	for _, bl := range blocks {
		sources = append(sources, BlockSource{
			BlockID: bl.ID,
			Span:    Interval{Start: bl.Start, End: bl.End},
			Reason:  bl.Reason,
		})
	}

	for _, r := range rules {
		if r.ID == opts.ExcludeRuleID || materialized[r.ID] {
			continue
		}
		sources = append(sources, RuleSource{
			RuleID: r.ID,
			Span:   Interval{Start: r.Start, End: r.End},
		})
	}

	return sources, nil
}

func (a *Aggregator) occupies(b BookingRecord, staleBefore time.Time) bool {
	switch b.Status {
	case statusCancelled:
		return false
	case statusPending:
		return !b.CreatedAt.Before(staleBefore)
	default:
		return true
	}
}
