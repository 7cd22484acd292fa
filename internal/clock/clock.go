package clock

import "time"

// Clock is the time source for all accounting operations. Usage rows and
// run IDs are keyed by UTC dates, so every method reports UTC regardless of
// the host timezone.
type Clock interface {
	Now() time.Time
	// Today returns the current UTC date as YYYY-MM-DD.
	Today() string
	// Month returns the current UTC month as YYYY-MM.
	Month() string
}

type utcClock struct{}

// UTC returns the real wall clock.
func UTC() Clock { return utcClock{} }

func (utcClock) Now() time.Time { return time.Now().UTC() }
func (utcClock) Today() string  { return time.Now().UTC().Format(DateLayout) }
func (utcClock) Month() string  { return time.Now().UTC().Format(MonthLayout) }

// Layouts for ledger date keys.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type fixedClock struct {
	at time.Time
}

// Fixed returns a clock pinned to a single instant, for tests.
func Fixed(at time.Time) Clock { return fixedClock{at: at.UTC()} }

func (c fixedClock) Now() time.Time { return c.at }
func (c fixedClock) Today() string  { return c.at.Format(DateLayout) }
func (c fixedClock) Month() string  { return c.at.Format(MonthLayout) }
