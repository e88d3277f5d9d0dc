package timeseries

import (
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

const (
	day           = 24 * time.Hour
	secondsPerDay = 24 * 60 * 60
)

// Calendar generates step timestamps for each Frequency. Business days skip
// weekends and US market holidays.
type Calendar struct {
	business *cal.BusinessCalendar
}

func NewCalendar() *Calendar {
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &Calendar{business: bc}
}

// IsStep reports whether t falls on a valid step date for freq. Daily and
// weekly steps accept any date.
func (c *Calendar) IsStep(t time.Time, freq Frequency) bool {
	if freq == BusinessDay {
		return c.business.IsWorkday(TruncateDay(t))
	}
	return true
}

// Next returns the first step date strictly after t.
func (c *Calendar) Next(t time.Time, freq Frequency) (time.Time, error) {
	t = TruncateDay(t)
	switch freq {
	case Daily:
		return t.Add(day), nil
	case Weekly:
		return t.Add(7 * day), nil
	case BusinessDay:
		next := t.Add(day)
		for !c.business.IsWorkday(next) {
			next = next.Add(day)
		}
		return next, nil
	default:
		return time.Time{}, fmt.Errorf("%q, %w", freq, ErrUnsupportedFrequency)
	}
}

// Steps returns n consecutive step dates strictly after t, ascending.
func (c *Calendar) Steps(after time.Time, n int, freq Frequency) ([]time.Time, error) {
	if n <= 0 {
		return []time.Time{}, nil
	}
	steps := make([]time.Time, 0, n)
	cur := TruncateDay(after)
	for len(steps) < n {
		next, err := c.Next(cur, freq)
		if err != nil {
			return nil, err
		}
		steps = append(steps, next)
		cur = next
	}
	return steps, nil
}

// StepsBetween counts how many freq steps separate from and to, rounding a
// partial step up. It is zero when to is not after from.
func (c *Calendar) StepsBetween(from, to time.Time, freq Frequency) (int, error) {
	from, to = TruncateDay(from), TruncateDay(to)
	if !to.After(from) {
		return 0, nil
	}
	// whole calendar days; time.Duration overflows past ~292 years
	days := int((to.Unix() - from.Unix()) / secondsPerDay)
	switch freq {
	case Daily:
		return days, nil
	case Weekly:
		return (days + 6) / 7, nil
	case BusinessDay:
		n := 0
		for d := from.Add(day); !d.After(to); d = d.Add(day) {
			if c.business.IsWorkday(d) {
				n++
			}
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%q, %w", freq, ErrUnsupportedFrequency)
	}
}
