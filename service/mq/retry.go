package mq

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy decides how a handler outcome is settled. The delivery count is
// always taken from the received message: redeliveries may land on another
// process, so no counter is kept locally.
type RetryPolicy struct {
	// Limit is the number of redeliveries allowed before a Retryable message
	// is dead-lettered.
	Limit int
}

// Decide returns the settlement for outcome at the given delivery count.
func (p RetryPolicy) Decide(outcome Outcome, deliveryCount int) Action {
	switch outcome {
	case Completed:
		return Ack
	case Poisoned:
		return DeadLetter
	}
	if deliveryCount < p.Limit {
		return Nack
	}
	return DeadLetter
}

// BackoffConfig describes a capped exponential backoff.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

var (
	defaultEmptyBackoff = BackoffConfig{Initial: 250 * time.Millisecond, Max: 30 * time.Second, Multiplier: 2}
	defaultErrorBackoff = BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}
)

func (b BackoffConfig) withDefaults(def BackoffConfig) BackoffConfig {
	if b.Initial <= 0 {
		b.Initial = def.Initial
	}
	if b.Max <= 0 {
		b.Max = def.Max
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier < 1 {
		b.Multiplier = def.Multiplier
	}
	return b
}

// newBackOff never gives up; the loop only stops on cancellation.
func (b BackoffConfig) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.Initial
	eb.MaxInterval = b.Max
	eb.Multiplier = b.Multiplier
	eb.RandomizationFactor = 0.2
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}
