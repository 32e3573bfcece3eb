package mq

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// lockRenewal keeps a single message's lease alive while its handler runs.
// It is owned by the worker processing that message.
type lockRenewal struct {
	done    chan struct{}
	stopped chan struct{}
	failed  atomic.Bool
}

// minRenewalDelay keeps renewal from spinning on an already expired lease.
const minRenewalDelay = time.Millisecond

// renewLock keeps msg's lock alive until stop is called. A renewal is due
// every lockRenewalInterval, or at half of the remaining lease when the
// broker granted a shorter one. If a renewal fails, abandon is called so the
// handler sees its context canceled, and the message must not be settled.
func (obj *Consumer) renewLock(ctx context.Context, abandon context.CancelFunc, log zerolog.Logger, msg *Message) *lockRenewal {
	lr := &lockRenewal{
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if obj.lockRenewalInterval <= 0 {
		close(lr.stopped)
		return lr
	}

	go func() {
		defer close(lr.stopped)

		next := time.NewTimer(obj.renewalDelay(msg.LockedUntil))
		defer next.Stop()

		var expired <-chan time.Time
		if obj.maxLockRenewalDuration > 0 {
			t := time.NewTimer(obj.maxLockRenewalDuration)
			defer t.Stop()
			expired = t.C
		}

		for {
			select {
			case <-lr.done:
				return
			case <-ctx.Done():
				return
			case <-expired:
				log.Warn().
					Dur("max_lock_renewal_duration", obj.maxLockRenewalDuration).
					Msg("Stopped renewing lock, handler is still running")
				return
			case <-next.C:
			}

			select {
			case <-lr.done:
				return
			default:
			}

			until, err := obj.client.RenewLock(ctx, msg)
			obj.metrics.LockRenewed(err)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				lr.failed.Store(true)
				abandon()
				log.Warn().Err(err).Msg("Lock renewal failed")
				return
			}
			log.Debug().Time("locked_until", until).Msg("Lock renewed")
			next.Reset(obj.renewalDelay(until))
		}
	}()

	return lr
}

// renewalDelay is the time until the next renewal of a lock held until
// lockedUntil. A zero lockedUntil means the broker did not report the lease.
func (obj *Consumer) renewalDelay(lockedUntil time.Time) time.Duration {
	d := obj.lockRenewalInterval
	if lockedUntil.IsZero() {
		return d
	}
	if half := time.Until(lockedUntil) / 2; half < d {
		d = half
	}
	return max(d, minRenewalDelay)
}

// stop ends renewal and waits for the renewal goroutine to exit.
func (lr *lockRenewal) stop() {
	select {
	case <-lr.done:
	default:
		close(lr.done)
	}
	<-lr.stopped
}

func (lr *lockRenewal) lost() bool {
	return lr.failed.Load()
}
