package timeseries

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnsupportedFrequency = errors.New("unsupported frequency")

// Frequency is the step unit between two forecast timestamps.
type Frequency string

const (
	Daily       Frequency = "D"
	BusinessDay Frequency = "B"
	Weekly      Frequency = "W"
)

func SupportedFrequencies() []Frequency {
	return []Frequency{Daily, BusinessDay, Weekly}
}

// ParseFrequency accepts the short codes and their long names, case-insensitive.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "D", "DAY", "DAILY":
		return Daily, nil
	case "B", "BUSINESS", "BUSINESS_DAY":
		return BusinessDay, nil
	case "W", "WEEK", "WEEKLY":
		return Weekly, nil
	default:
		return "", fmt.Errorf("%q, %w", s, ErrUnsupportedFrequency)
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, BusinessDay, Weekly:
		return true
	}
	return false
}

func (f Frequency) String() string {
	return string(f)
}

// TruncateDay drops the time of day and normalizes to UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
