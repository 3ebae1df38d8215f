package period

import (
	"fmt"
	"time"
)

const (
	Today = "today"
	Week  = "week"
	Month = "month"
	Year  = "year"
	All   = "all"
)

var ErrUnknownPeriod = fmt.Errorf("unknown period")

// Keywords - the full set of valid period arguments, in display order.
func Keywords() []string {
	return []string{Today, Week, Month, Year, All}
}

// StatsKeywords - the subset accepted by per-user stats and listings.
func StatsKeywords() []string {
	return []string{Today, Week, Month, Year}
}

// Range maps a period keyword and a current instant to the half-open
// calendar window [start, end) in now's location.
//
//	today - midnight..next midnight
//	week  - Monday 00:00 of the current ISO week, seven days
//	month - 1st 00:00..1st of next month (rolls the year in December)
//	year  - Jan 1 00:00..next Jan 1
//	all   - epoch start..a century from now
func Range(kind string, now time.Time) (time.Time, time.Time, error) {
	switch kind {
	case Today:
		start := midnight(now)
		return start, start.AddDate(0, 0, 1), nil
	case Week:
		wd := int(now.Weekday())
		if wd == 0 { // time.Sunday; ISO weeks start on Monday
			wd = 7
		}
		start := midnight(now).AddDate(0, 0, -(wd - 1))
		return start, start.AddDate(0, 0, 7), nil
	case Month:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0), nil
	case Year:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0), nil
	case All:
		return time.Unix(0, 0).In(now.Location()), now.AddDate(100, 0, 0), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, kind)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
