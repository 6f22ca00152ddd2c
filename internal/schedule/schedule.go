// Package schedule turns a facility's weekly opening hours into the bookable
// start times of a calendar date.
package schedule

import "time"

const (
	MinutesPerDay = 24 * 60

	DefaultOpenHour  = 9
	DefaultCloseHour = 23
)

// DayHours is the opening configuration of one weekday.
// A nil hour means "use the facility default".
type DayHours struct {
	OpenHour  *int `json:"open_hour"`
	CloseHour *int `json:"close_hour"`
	Closed    bool `json:"closed"`
}

// Weekly holds one entry per weekday, addressed by time.Weekday (Sunday = 0).
type Weekly [7]DayHours

// Config is everything needed to resolve a facility's hours for a date.
type Config struct {
	DefaultOpenHour  *int
	DefaultCloseHour *int
	Granularity      int
	Weekly           Weekly
}

// Window is an open/close pair in minutes of day, close exclusive.
type Window struct {
	Open  int
	Close int
}

// Resolve returns the opening window for date. ok is false when the facility is
// closed that day, which is a normal business state rather than an error.
//
// Resolution order: an explicit Closed flag, then a complete weekday override,
// then the facility default. Any pair whose close is not after open is closed.
func Resolve(cfg Config, date time.Time) (Window, bool) {
	day := cfg.Weekly[date.Weekday()]
	if day.Closed {
		return Window{}, false
	}

	open, close := day.OpenHour, day.CloseHour
	if open == nil || close == nil {
		open, close = cfg.DefaultOpenHour, cfg.DefaultCloseHour
	}
	if open == nil || close == nil {
		return Window{}, false
	}

	w := Window{Open: *open * 60, Close: *close * 60}
	if w.Open < 0 || w.Close > MinutesPerDay || w.Close <= w.Open {
		return Window{}, false
	}
	return w, true
}

// Grid returns the start minutes spaced by granularity from open, strictly
// before close. Degenerate input yields no slots.
func Grid(open, close, granularity int) []int {
	if granularity <= 0 || open >= close {
		return nil
	}
	starts := make([]int, 0, (close-open+granularity-1)/granularity)
	for m := open; m < close; m += granularity {
		starts = append(starts, m)
	}
	return starts
}

// GridFor resolves date and returns its grid.
func GridFor(cfg Config, date time.Time) []int {
	w, ok := Resolve(cfg, date)
	if !ok {
		return nil
	}
	return Grid(w.Open, w.Close, cfg.Granularity)
}

// SlotsFor returns the grid starts of date whose slot of the given duration
// ends no later than close.
func SlotsFor(cfg Config, date time.Time, duration int) []int {
	w, ok := Resolve(cfg, date)
	if !ok || duration <= 0 {
		return nil
	}
	var fits []int
	for _, s := range Grid(w.Open, w.Close, cfg.Granularity) {
		if s+duration <= w.Close {
			fits = append(fits, s)
		}
	}
	return fits
}

// FitsWindow reports whether [start,end) lies inside the opening window of date.
func FitsWindow(cfg Config, date time.Time, start, end int) bool {
	w, ok := Resolve(cfg, date)
	return ok && start >= w.Open && end <= w.Close && start < end
}

// Date truncates t to its calendar day in UTC, the representation used for
// booking dates throughout the service.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatMinute renders minutes of day as HH:MM.
func FormatMinute(m int) string {
	if m == MinutesPerDay {
		return "24:00"
	}
	return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m) * time.Minute).Format("15:04")
}

// ParseMinute parses HH:MM into minutes of day. "24:00" is accepted as end of day.
func ParseMinute(s string) (int, bool) {
	if s == "24:00" {
		return MinutesPerDay, true
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
