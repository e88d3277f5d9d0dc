package utils

import "time"

// TimeNow is the clock used for persisted timestamps. All stored times are UTC.
func TimeNow() time.Time {
	return time.Now().UTC()
}

// DaysAgo returns the UTC midnight that lies days before today.
func DaysAgo(days int) time.Time {
	now := TimeNow()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}
