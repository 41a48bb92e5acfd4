package service

import "time"

// SystemClock is the production domain.Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
