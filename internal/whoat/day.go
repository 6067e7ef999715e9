package whoat

import (
	"fmt"
	"time"
)

const (
	// DayLayout is the YYYYMMDD form used in cache keys and queries.
	DayLayout = "20060102"

	AllLocations    = "all"
	DefaultTimezone = "America/Los_Angeles"
)

// DayWindow returns the UTC instants bounding the civil day in loc. The end
// is the next local midnight, not start+24h, so DST days span 23 or 25 hours.
func DayWindow(day string, loc *time.Location) (start, end time.Time, err error) {
	d, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("whoat: bad day %q: %w", day, err)
	}
	return d.UTC(), d.AddDate(0, 0, 1).UTC(), nil
}

// LocalDay returns midnight of the civil day containing t in loc, offset by
// the given number of days.
func LocalDay(t time.Time, loc *time.Location, offsetDays int) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+offsetDays, 0, 0, 0, 0, loc)
}

// CacheKey is "<YYYYMMDD>:<where>".
func CacheKey(day time.Time, where string) string {
	if where == "" {
		where = AllLocations
	}
	return day.Format(DayLayout) + ":" + where
}

// FormatSpan renders "9:00am-11:00am" in loc, or just the start when end is nil.
func FormatSpan(start time.Time, end *time.Time, loc *time.Location) string {
	s := start.In(loc).Format("3:04pm")
	if end == nil {
		return s
	}
	return s + "-" + end.In(loc).Format("3:04pm")
}
