package recurring

import (
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.NotFound("recurring slot not found")
	ErrOverlap           = apperror.SlotUnavailable("recurring slot overlaps existing occupancy")
	ErrForbidden         = apperror.Forbidden("forbidden: only the facility manager can manage recurring slots")
	ErrInactive          = apperror.InvalidState("recurring slot is inactive")
	ErrInvalidInput      = apperror.Validation("court, beneficiary and anchor date are required")
	ErrInvalidWeekday    = apperror.Validation("day of week must be between 0 (Sunday) and 6")
	ErrInvalidInterval   = apperror.Validation("end must be after start, within the same day")
	ErrInvalidPrice      = apperror.Validation("price must not be negative")
	ErrInvalidType       = apperror.Validation("type must be SUBSCRIPTION, FIXED or TRAINING")
	ErrOutsideHours      = apperror.Validation("recurring slot must fall within the opening hours of its weekday")
	ErrInvalidOccurrence = apperror.Validation("occurrences must be between 1 and 52")
)

type Type string

const (
	TypeSubscription Type = "SUBSCRIPTION"
	TypeFixed        Type = "FIXED"
	TypeTraining     Type = "TRAINING"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSubscription, TypeFixed, TypeTraining:
		return true
	}
	return false
}

// ValidationWindowDays is how far ahead a new rule is checked for conflicts.
const ValidationWindowDays = 30

const MaxOccurrences = 52

// Rule is a weekly reservation template that materializes into bookings.
type Rule struct {
	ID          string
	CourtID     string
	FacilityID  string
	UserID      string
	DayOfWeek   time.Weekday
	StartMinute int
	EndMinute   int
	AnchorDate  time.Time
	Price       int64
	Type        Type
	Active      bool
	CreatedAt   time.Time
}

func (r *Rule) Interval() occupancy.Interval {
	return occupancy.Interval{Start: r.StartMinute, End: r.EndMinute}
}

// FirstOnOrAfter returns the first date on or after from that falls on the rule's weekday.
func (r *Rule) FirstOnOrAfter(from time.Time) time.Time {
	shift := (int(r.DayOfWeek) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, shift)
}

// Skip reasons reported by Generate.
const (
	ReasonExistingBooking = "existing booking"
	ReasonBlocked         = "blocked"
	ReasonOverlappingRule = "overlapping recurring rule"
	ReasonOutsideHours    = "outside opening hours"
)

func skipReason(kind occupancy.Kind) string {
	switch kind {
	case occupancy.KindBlock:
		return ReasonBlocked
	case occupancy.KindRecurringRule:
		return ReasonOverlappingRule
	default:
		return ReasonExistingBooking
	}
}

type Skipped struct {
	Date       time.Time
	Reason     string
	ConflictID string
}

type GenerateResult struct {
	Created    int
	BookingIDs []string
	Skipped    []Skipped
}

type Filter struct {
	CourtID    string
	FacilityID string
	ActiveOnly bool
	Page       int
	PageSize   int
}
