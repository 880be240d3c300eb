// Package calendar provides day-level time primitives for streak tracking.
package calendar

import (
	"time"
)

// DayKeyLayout is the canonical YYYY-MM-DD format used for activity days.
const DayKeyLayout = "2006-01-02"

// DefaultBackfillCap bounds how many historical days a backfill may produce.
const DefaultBackfillCap = 30

// Clock supplies the current time. Production code uses SystemClock;
// tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real wall-clock time.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.T
}

// DayKey formats a timestamp as its canonical calendar-day string.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// IsSameDay reports whether two timestamps fall on the same calendar day.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsConsecutiveDay reports whether now falls exactly one calendar day after
// prev. The comparison uses calendar dates, not elapsed hours, so an
// activity at 23:59 followed by one at 00:01 still counts as consecutive.
func IsConsecutiveDay(prev, now time.Time) bool {
	py, pm, pd := prev.Date()
	next := time.Date(py, pm, pd+1, 0, 0, 0, 0, prev.Location())
	return IsSameDay(next, now)
}

// BackfillDays returns day keys for the last n calendar days ending at now,
// most recent first, capped at cap entries. Used to repair activity-day
// history that is shorter than a claimed streak; best effort only.
func BackfillDays(now time.Time, n, limit int) []string {
	if n > limit {
		n = limit
	}
	if n <= 0 {
		return nil
	}
	days := make([]string, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, DayKey(now.AddDate(0, 0, -i)))
	}
	return days
}
