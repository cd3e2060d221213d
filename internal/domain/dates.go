package domain

import "time"

// DayLayout is the YYYY-MM-DD layout used for entry dates.
const DayLayout = "2006-01-02"

// FormatDate truncates t to its calendar day in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDate returns local midnight of the given YYYY-MM-DD day.
func ParseDate(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, time.Local)
}

// Today returns the current local calendar day.
func Today() string {
	return FormatDate(time.Now())
}

// AddDays offsets t by a signed number of calendar days.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// ValidDay reports whether day is a well-formed YYYY-MM-DD calendar day.
func ValidDay(day string) bool {
	_, err := time.Parse(DayLayout, day)
	return err == nil
}
