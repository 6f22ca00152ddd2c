package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hour(h int) *int { return &h }

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	base := Config{DefaultOpenHour: hour(9), DefaultCloseHour: hour(23), Granularity: 60}

	withMonday := base
	withMonday.Weekly[time.Monday] = DayHours{OpenHour: hour(7), CloseHour: hour(12)}

	closedMonday := base
	closedMonday.Weekly[time.Monday] = DayHours{Closed: true}

	partialOverride := base
	partialOverride.Weekly[time.Monday] = DayHours{OpenHour: hour(7)}

	noDefaults := Config{Granularity: 60}

	inverted := Config{DefaultOpenHour: hour(20), DefaultCloseHour: hour(8), Granularity: 60}

	tests := []struct {
		name   string
		cfg    Config
		want   Window
		wantOK bool
	}{
		{"facility default", base, Window{540, 1380}, true},
		{"weekday override", withMonday, Window{420, 720}, true},
		{"explicitly closed", closedMonday, Window{}, false},
		{"partial override falls back", partialOverride, Window{540, 1380}, true},
		{"no hours at all", noDefaults, Window{}, false},
		{"close before open", inverted, Window{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.cfg, monday)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOnlyTouchesMatchingWeekday(t *testing.T) {
	cfg := Config{DefaultOpenHour: hour(9), DefaultCloseHour: hour(23), Granularity: 60}
	cfg.Weekly[time.Sunday] = DayHours{Closed: true}

	_, ok := Resolve(cfg, monday.AddDate(0, 0, -1))
	assert.False(t, ok)

	w, ok := Resolve(cfg, monday)
	assert.True(t, ok)
	assert.Equal(t, 540, w.Open)
}

func TestGrid(t *testing.T) {
	assert.Equal(t, []int{540, 600, 660}, Grid(540, 720, 60))
	assert.Equal(t, []int{540, 570, 600, 630, 660, 690}, Grid(540, 720, 30))
	assert.Equal(t, []int{540, 630}, Grid(540, 700, 90))

	assert.Empty(t, Grid(720, 720, 60))
	assert.Empty(t, Grid(800, 720, 60))
	assert.Empty(t, Grid(540, 720, 0))
	assert.Empty(t, Grid(540, 720, -15))
}

func TestGridBoundsAndIdempotence(t *testing.T) {
	for open := 0; open < MinutesPerDay; open += 97 {
		for close := open; close <= MinutesPerDay; close += 131 {
			for _, g := range []int{15, 30, 45, 60, 90} {
				first := Grid(open, close, g)
				second := Grid(open, close, g)
				assert.Equal(t, first, second)

				for i, s := range first {
					assert.GreaterOrEqual(t, s, open)
					assert.Less(t, s, close)
					if i > 0 {
						assert.Equal(t, g, s-first[i-1])
					}
				}
			}
		}
	}
}

func TestSlotsForDropsSlotsPastClose(t *testing.T) {
	cfg := Config{DefaultOpenHour: hour(9), DefaultCloseHour: hour(12), Granularity: 30}

	assert.Equal(t, []int{540, 570, 600, 630}, SlotsFor(cfg, monday, 90))
	assert.Equal(t, []int{540, 570, 600, 630, 660, 690}, SlotsFor(cfg, monday, 30))
	assert.Empty(t, SlotsFor(cfg, monday, 0))
}

func TestFitsWindow(t *testing.T) {
	cfg := Config{DefaultOpenHour: hour(9), DefaultCloseHour: hour(23), Granularity: 60}

	assert.True(t, FitsWindow(cfg, monday, 1200, 1260))
	assert.True(t, FitsWindow(cfg, monday, 1320, 1380))
	assert.False(t, FitsWindow(cfg, monday, 1320, 1440))
	assert.False(t, FitsWindow(cfg, monday, 480, 540))
}

func TestParseAndFormatMinute(t *testing.T) {
	m, ok := ParseMinute("18:30")
	assert.True(t, ok)
	assert.Equal(t, 1110, m)
	assert.Equal(t, "18:30", FormatMinute(m))

	m, ok = ParseMinute("24:00")
	assert.True(t, ok)
	assert.Equal(t, MinutesPerDay, m)

	_, ok = ParseMinute("25:00")
	assert.False(t, ok)
}
