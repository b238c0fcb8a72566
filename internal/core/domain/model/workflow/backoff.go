package workflow

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"orderflow/internal/pkg/errs"
)

// BackoffPolicy is a capped exponential delay without jitter.
// Delay before retry n (1-indexed) = min(Base * 2^(n-1), Max).
type BackoffPolicy struct {
	Base time.Duration
	Max  time.Duration
}

func (p BackoffPolicy) Validate() error {
	if p.Base <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("backoff base", fmt.Errorf("%s is not greater than 0", p.Base))
	}
	if p.Max < p.Base {
		return errs.NewValueIsInvalidErrorWithCause("backoff max", fmt.Errorf("%s is less than base %s", p.Max, p.Base))
	}
	return nil
}

// Delay returns the wait before retry n. n below 1 is treated as 1.
func (p BackoffPolicy) Delay(n int) time.Duration {
	b := p.NewBackOff()
	d := b.NextBackOff()
	for i := 1; i < n && d < p.Max; i++ {
		d = b.NextBackOff()
	}
	return d
}

// NewBackOff returns a fresh iterator yielding Base, 2*Base, 4*Base ...
// capped at Max. It never returns backoff.Stop; the caller bounds the
// number of retries.
func (p BackoffPolicy) NewBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.Max,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
