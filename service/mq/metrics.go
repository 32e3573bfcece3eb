package mq

import "time"

// Metrics receives consumer events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	BatchReceived(size int)
	ReceiveFailed(err error)
	InFlight(n int)
	Handled(outcome Outcome, elapsed time.Duration)
	Settled(action Action, err error)
	LockRenewed(err error)
	Abandoned(reason string)
}

// NopMetrics discards every event.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) BatchReceived(int) {}
func (NopMetrics) ReceiveFailed(error) {}
func (NopMetrics) InFlight(int) {}
func (NopMetrics) Handled(Outcome, time.Duration) {}
func (NopMetrics) Settled(Action, error) {}
func (NopMetrics) LockRenewed(error) {}
func (NopMetrics) Abandoned(string) {}
