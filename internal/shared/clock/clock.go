package clock

import "time"

// Clock abstracts "now" so notice periods, SLA deadlines and working-day
// math can be tested against fixed timestamps.
//
//go:generate mockgen -destination=mock/clock_mock.go -package=mock . Clock
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the real wall clock in UTC.
func System() Clock { return systemClock{} }

// Fixed returns a clock pinned to t. Test helper.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }
