package utils

import (
	"fmt"
	"math"
	"time"
)

// Display number prefixes.
const (
	LoanNumberPrefix = "LOAN"
	FineNumberPrefix = "FIN"
)

// Clock supplies the current instant. Inject FixedClock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At.UTC() }

// StartOfDay truncates t to midnight UTC of its UTC date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns midnight UTC of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds calendar months, clamping to the last day of the target
// month (Jan 31 + 1 month is Feb 28/29, not Mar 3).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysLate is the whole number of days (floored) from dueDate to paidOn.
// Zero or negative means on time.
func DaysLate(dueDate, paidOn time.Time) int {
	return int(math.Floor(paidOn.Sub(dueDate).Hours() / 24))
}

// IsDateOverdue reports whether dueDate falls before the start of today.
func IsDateOverdue(dueDate time.Time, today time.Time) bool {
	return dueDate.Before(StartOfDay(today))
}

// FormatDisplayNumber renders a sequential display id such as LOAN0007.
func FormatDisplayNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}
