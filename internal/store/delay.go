package store

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delayer simulates the latency of a remote call before each operation.
type Delayer interface {
	Wait(ctx context.Context) error
}

// RandomDelay waits a uniformly random duration in [Min, Max).
type RandomDelay struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDelay mimics a network round trip.
var DefaultDelay = RandomDelay{Min: 120 * time.Millisecond, Max: 260 * time.Millisecond}

func (d RandomDelay) Wait(ctx context.Context) error {
	wait := d.Min
	if span := d.Max - d.Min; span > 0 {
		wait += rand.N(span)
	}
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type noDelay struct{}

func (noDelay) Wait(ctx context.Context) error { return ctx.Err() }

// NoDelay completes immediately.
var NoDelay Delayer = noDelay{}
