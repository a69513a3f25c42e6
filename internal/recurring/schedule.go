package recurring

import (
	"fmt"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule returns the activation schedule of a rule. Occurrences fall at midnight.
func Schedule(r *Rule) (cron.Schedule, error) {
	switch r.Frequency {
	case FrequencyDaily:
		return parser.Parse("0 0 * * *")
	case FrequencyWeekly:
		return parser.Parse(fmt.Sprintf("0 0 * * %d", r.Day))
	case FrequencyMonthly:
		return monthlySchedule{day: r.Day}, nil
	case FrequencyYearly:
		return yearlySchedule{month: r.StartDate.Month(), day: r.StartDate.Day()}, nil
	}
	return nil, errors.NewValidationFieldError("frequency", fmt.Sprintf("unknown frequency %q", r.Frequency), errors.ErrCodeInvalidFrequency)
}

// monthlySchedule fires on a day of month, clamped to the month's length.
type monthlySchedule struct {
	day int
}

func (s monthlySchedule) Next(t time.Time) time.Time {
	y, m, _ := t.Date()
	candidate := clampedDate(y, m, s.day, t.Location())
	if candidate.After(t) {
		return candidate
	}
	return clampedDate(y, m+1, s.day, t.Location())
}

// yearlySchedule fires once a year on month/day; Feb 29 falls back to Feb 28 in common years.
type yearlySchedule struct {
	month time.Month
	day   int
}

func (s yearlySchedule) Next(t time.Time) time.Time {
	candidate := clampedDate(t.Year(), s.month, s.day, t.Location())
	if candidate.After(t) {
		return candidate
	}
	return clampedDate(t.Year()+1, s.month, s.day, t.Location())
}

func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return first.AddDate(0, 0, day-1)
}
