// Package retry bounds how often a UI lookup is repeated before a step gives up.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/example/spinbook/internal/domain/ui"
)

// Policy is a bounded retry schedule. The zero value tries exactly once.
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff" yaml:"backoff"`
	// Multiplier > 1 grows the wait exponentially up to MaxBackoff.
	Multiplier float64       `mapstructure:"multiplier" yaml:"multiplier"`
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
}

func Default() Policy {
	return Policy{MaxAttempts: 3, Backoff: 500 * time.Millisecond, Multiplier: 1}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) schedule(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.Multiplier > 1 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.Backoff
		eb.Multiplier = p.Multiplier
		eb.RandomizationFactor = 0
		eb.MaxElapsedTime = 0
		if p.MaxBackoff > 0 {
			eb.MaxInterval = p.MaxBackoff
		}
		eb.Reset()
		b = eb
	} else {
		b = backoff.NewConstantBackOff(p.Backoff)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.attempts()-1)), ctx)
}

// Notify is called before each wait with the failed attempt number.
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, fails with a non-transient error, the attempts
// run out, or ctx is done. It returns the number of attempts made and the
// last error.
func (p Policy) Do(ctx context.Context, op func(attempt int) error, notify Notify) (int, error) {
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(attempt)
		if err != nil && !ui.Transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.schedule(ctx), func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
	return attempt, err
}
