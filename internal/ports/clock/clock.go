// Package clock is the Clock external port (§4.6): now() and a
// cancellable after(duration), so the Turn Controller and Room Actor
// never touch the wall clock directly and tests can drive virtual
// time.
package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the narrow surface the core depends on.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	AfterFunc(d time.Duration, f func()) Timer
	NewTicker(d time.Duration) Ticker
}

// Timer is a cancellable delayed callback.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Ticker is a cancellable periodic callback.
type Ticker interface {
	Stop()
	Chan() <-chan time.Time
}

// real wraps benbjohnson/clock's Clock, the corpus's de facto
// virtual-time library (surfaced as an indirect dependency of
// tibfox-okinoko-in_a_row), so production code and tests share one
// abstraction.
type real struct {
	c clock.Clock
}

// New returns the real wall-clock implementation.
func New() Clock {
	return &real{c: clock.New()}
}

func (r *real) Now() time.Time                     { return r.c.Now() }
func (r *real) After(d time.Duration) <-chan time.Time { return r.c.After(d) }

func (r *real) AfterFunc(d time.Duration, f func()) Timer {
	return r.c.AfterFunc(d, f)
}

func (r *real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: r.c.Ticker(d)}
}

type realTicker struct {
	t *clock.Ticker
}

func (t *realTicker) Stop()                      { t.t.Stop() }
func (t *realTicker) Chan() <-chan time.Time      { return t.t.C }

// Mock is a test double built on benbjohnson/clock's Mock, exposing
// Add/Set so turn-timer and dice-delay tests can advance time
// deterministically instead of sleeping.
type Mock struct {
	m *clock.Mock
}

// NewMock returns a Clock frozen at the Unix epoch.
func NewMock() *Mock {
	return &Mock{m: clock.NewMock()}
}

func (m *Mock) Now() time.Time                        { return m.m.Now() }
func (m *Mock) After(d time.Duration) <-chan time.Time { return m.m.After(d) }

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	return m.m.AfterFunc(d, f)
}

func (m *Mock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: m.m.Ticker(d)}
}

// Add advances the mock clock by d, firing any due timers/tickers.
func (m *Mock) Add(d time.Duration) { m.m.Add(d) }
