package block

import (
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.NotFound("blocked interval not found")
	ErrSlotUnavailable = apperror.SlotUnavailable("interval overlaps existing occupancy")
	ErrForbidden       = apperror.Forbidden("forbidden: only the facility manager can block courts")
	ErrInvalidInterval = apperror.Validation("end must be after start, within the same day")
	ErrInvalidInput    = apperror.Validation("court and date are required")
	ErrDateInPast      = apperror.Validation("cannot block a date in the past")
)

// Block is a manager-declared interval during which a court cannot be booked.
type Block struct {
	ID          string
	CourtID     string
	FacilityID  string
	Date        time.Time
	StartMinute int
	EndMinute   int
	Reason      string
	CreatedBy   string
	CreatedAt   time.Time
}

func (b *Block) Interval() occupancy.Interval {
	return occupancy.Interval{Start: b.StartMinute, End: b.EndMinute}
}

type Filter struct {
	CourtID string
	Date    *time.Time
}
