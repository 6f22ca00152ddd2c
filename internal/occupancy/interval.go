package occupancy

import "fmt"

// Interval is a half-open span [Start, End) in minutes of day.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Valid() bool {
	return i.Start >= 0 && i.End > i.Start
}

func (i Interval) String() string {
	return fmt.Sprintf("[%d,%d)", i.Start, i.End)
}

// Overlaps is the single overlap rule of the engine: [a0,a1) and [b0,b1)
// overlap iff a0 < b1 and a1 > b0. Touching intervals never overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// Conflicts reports whether candidate overlaps any occupied interval.
func Conflicts(candidate Interval, occupied []Interval) bool {
	for _, o := range occupied {
		if Overlaps(candidate, o) {
			return true
		}
	}
	return false
}
