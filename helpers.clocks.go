package main

import (
	"time"
)

var _ TickerClocker = (*Clock)(nil)

// Clocker gives the current time. Timestamps stored on books and the
// rate limiter buckets read it so tests can pin the time.
type Clocker interface {
	Now() time.Time
}

// TickerClocker also satisfies zapcore.Clock.
type TickerClocker interface {
	Clocker
	NewTicker(time.Duration) *time.Ticker
}

// Clock reads the wall time in a fixed location: UTC in production
// and the host zone otherwise.
type Clock struct {
	loc *time.Location
}

func NewClock(isProd bool) *Clock {
	loc := time.Local
	if isProd {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *Clock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
