// Package clock delivers ticks on wall-clock minute boundaries.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// EveryMinute fires at second zero of every minute.
const EveryMinute = "* * * * *"

// Ticker sends the boundary time on C at every scheduled instant. Unlike
// time.Ticker it re-derives each wait from the wall clock, so it never
// drifts from the schedule. A slow receiver misses ticks rather than
// receiving a backlog.
type Ticker struct {
	C <-chan time.Time

	c        chan time.Time
	schedule cron.Schedule
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewTicker starts a ticker for a standard five-field cron spec.
func NewTicker(spec string) (*Ticker, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return start(sched, time.Now), nil
}

// NewMinuteTicker starts a ticker aligned to minute boundaries.
func NewMinuteTicker() *Ticker {
	t, err := NewTicker(EveryMinute)
	if err != nil {
		panic(err)
	}
	return t
}

func start(sched cron.Schedule, now func() time.Time) *Ticker {
	c := make(chan time.Time, 1)
	t := &Ticker{
		C:        c,
		c:        c,
		schedule: sched,
		now:      now,
		stop:     make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Ticker) run() {
	for {
		next := t.schedule.Next(t.now())
		timer := time.NewTimer(next.Sub(t.now()))
		select {
		case <-timer.C:
			select {
			case t.c <- next:
			default:
			}
		case <-t.stop:
			timer.Stop()
			return
		}
	}
}

// Stop ends the ticker. It does not close C.
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// NextMinute returns the first minute boundary strictly after now.
func NextMinute(now time.Time) time.Time {
	sched, _ := cron.ParseStandard(EveryMinute)
	return sched.Next(now)
}

// UntilNextMinute is how long to wait from now until the next boundary.
func UntilNextMinute(now time.Time) time.Duration {
	return NextMinute(now).Sub(now)
}
