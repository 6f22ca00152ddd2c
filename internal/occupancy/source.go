package occupancy

// Kind tags where an occupied interval comes from.
type Kind string

const (
	KindBooking       Kind = "booking"
	KindBlock         Kind = "block"
	KindRecurringRule Kind = "recurring_rule"
)

// Source is one occupied interval of a court/date. The detector only needs
// the interval; Kind and ID make conflicts explainable to managers.
type Source interface {
	Kind() Kind
	ID() string
	Interval() Interval
}

// BookingSource is a materialized booking.
type BookingSource struct {
	BookingID string
	Span      Interval
	Status    string
}

func (s BookingSource) Kind() Kind         { return KindBooking }
func (s BookingSource) ID() string         { return s.BookingID }
func (s BookingSource) Interval() Interval { return s.Span }

// BlockSource is a manager-declared blocked interval.
type BlockSource struct {
	BlockID string
	Span    Interval
	Reason  string
}

func (s BlockSource) Kind() Kind         { return KindBlock }
func (s BlockSource) ID() string         { return s.BlockID }
func (s BlockSource) Interval() Interval { return s.Span }

// RuleSource is a recurring rule occurrence not yet materialized as a booking.
type RuleSource struct {
	RuleID string
	Span   Interval
}

func (s RuleSource) Kind() Kind         { return KindRecurringRule }
func (s RuleSource) ID() string         { return s.RuleID }
func (s RuleSource) Interval() Interval { return s.Span }

// Intervals flattens sources for the detector.
func Intervals(sources []Source) []Interval {
	out := make([]Interval, len(sources))
	for i, s := range sources {
		out[i] = s.Interval()
	}
	return out
}

// FirstConflict returns the first source overlapping candidate.
func FirstConflict(candidate Interval, sources []Source) (Source, bool) {
	for _, s := range sources {
		if Overlaps(candidate, s.Interval()) {
			return s, true
		}
	}
	return nil, false
}

// Describe renders a conflicting source for error payloads.
func Describe(s Source) map[string]any {
	span := s.Interval()
	return map[string]any{
		"conflict_kind": string(s.Kind()),
		"conflict_id":   s.ID(),
		"conflict_from": span.Start,
		"conflict_to":   span.End,
	}
}
