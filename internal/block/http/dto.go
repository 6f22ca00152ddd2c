package http

import (
	"errors"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/block"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

type BlockResponse struct {
	ID        string    `json:"id"`
	CourtID   string    `json:"court_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewBlockResponse(b *block.Block) BlockResponse {
	return BlockResponse{
		ID:        b.ID,
		CourtID:   b.CourtID,
		Date:      b.Date.Format(request.DateLayout),
		StartTime: schedule.FormatMinute(b.StartMinute),
		EndTime:   schedule.FormatMinute(b.EndMinute),
		Reason:    b.Reason,
		CreatedBy: b.CreatedBy,
		CreatedAt: b.CreatedAt,
	}
}

// CreateBlockRequest takes times as "HH:MM"; "24:00" closes the day.
type CreateBlockRequest struct {
	CourtID   string `json:"court_id" binding:"required,uuid"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Reason    string `json:"reason" binding:"omitempty,max=200"`

	date  time.Time
	start int
	end   int
}

func (r *CreateBlockRequest) Validate() error {
	d, err := time.Parse(request.DateLayout, r.Date)
	if err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	start, ok := schedule.ParseMinute(r.StartTime)
	if !ok {
		return errors.New("start_time must be HH:MM")
	}
	end, ok := schedule.ParseMinute(r.EndTime)
	if !ok {
		return errors.New("end_time must be HH:MM")
	}
	r.date, r.start, r.end = d, start, end
	return nil
}

type ListBlocksRequest struct {
	CourtID string `form:"court_id" binding:"required,uuid"`
	Date    string `form:"date"`

	date *time.Time
}

func (r *ListBlocksRequest) Validate() error {
	if r.Date == "" {
		return nil
	}
	d, err := time.Parse(request.DateLayout, r.Date)
	if err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	r.date = &d
	return nil
}
