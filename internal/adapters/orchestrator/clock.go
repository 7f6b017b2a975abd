package orchestrator

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads and sleeps so Await can be tested without
// real delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the production Clock.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// Sleep blocks for d, honoring context cancellation.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FakeClock is a deterministic Clock for tests. Sleep advances the clock
// instead of blocking and runs the optional OnSleep hook.
type FakeClock struct {
	Current time.Time
	// OnSleep is invoked after each advance with the new time.
	OnSleep func(now time.Time)
}

// NewFakeClock creates a FakeClock starting at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{Current: t}
}

// Now returns the fake current time.
func (f *FakeClock) Now() time.Time { return f.Current }

// Sleep advances the fake time by d.
func (f *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Current = f.Current.Add(d)
	if f.OnSleep != nil {
		f.OnSleep(f.Current)
	}
	return nil
}
