// Package mqtest provides an in-memory mq.Client with peek-lock semantics,
// broker-side delivery counts, a dead-letter list and fault injection.
package mqtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

var (
	ErrClosed = errors.New("broker is closed")
	// ErrUnknownLock is returned (wrapped in mq.ErrLockLost) when a lock token
	// is not currently held.
	ErrUnknownLock = errors.New("lock token not held")
)

// DeadLettered is a message moved to the dead-letter list.
type DeadLettered struct {
	Message mq.Message
	Reason  mq.DeadLetterReason
}

type entry struct {
	msg         mq.Message
	lockedUntil time.Time
}

// Broker is a single in-memory subscription.
type Broker struct {
	lockDuration time.Duration
	waitTime     time.Duration

	mu           sync.Mutex
	ready        []*entry
	deadLettered []DeadLettered
	acked        []string
	nacked       []string
	receiveCalls int
	receiveErrs  []error
	renewErr     error
	settleErrs   map[mq.Action]error
	closed       bool

	// inFlight is keyed by lock token.
	inFlight *xsync.Map[string, *entry]
}

// Option configures a Broker.
type Option func(*Broker)

// WithLockDuration sets how long a received message stays locked.
func WithLockDuration(d time.Duration) Option {
	return func(b *Broker) { b.lockDuration = d }
}

// WithWaitTime makes ReceiveBatch wait up to d for messages before returning
// an empty batch.
func WithWaitTime(d time.Duration) Option {
	return func(b *Broker) { b.waitTime = d }
}

func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		lockDuration: time.Minute,
		settleErrs:   make(map[mq.Action]error),
		inFlight:     xsync.NewMap[string, *entry](),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ mq.Client = (*Broker)(nil)

// Publish enqueues payload and returns the message ID.
func (b *Broker) Publish(payload []byte) string {
	return b.PublishMessage(mq.Message{Payload: payload})
}

// PublishMessage enqueues a copy of msg. Its DeliveryCount is kept, which lets
// tests start from a message that has already been redelivered.
func (b *Broker) PublishMessage(msg mq.Message) string {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now()
	}
	msg.LockToken = ""
	msg.Raw = nil

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = append(b.ready, &entry{msg: msg})
	return msg.ID
}

func (b *Broker) ReceiveBatch(ctx context.Context, maxCount int) ([]*mq.Message, error) {
	deadline := time.Now().Add(b.waitTime)
	for {
		out, err := b.receive(maxCount)
		if err != nil || len(out) > 0 || !time.Now().Before(deadline) {
			return out, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (b *Broker) receive(maxCount int) ([]*mq.Message, error) {
	b.expireLocks()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.receiveCalls++
	if b.closed {
		return nil, mq.Unavailable(ErrClosed)
	}
	if len(b.receiveErrs) > 0 {
		err := b.receiveErrs[0]
		b.receiveErrs = b.receiveErrs[1:]
		return nil, err
	}

	n := min(maxCount, len(b.ready))
	out := make([]*mq.Message, 0, n)
	now := time.Now()
	for _, e := range b.ready[:n] {
		e.lockedUntil = now.Add(b.lockDuration)
		token := uuid.NewString()
		b.inFlight.Store(token, e)

		msg := e.msg
		msg.LockToken = token
		msg.LockedUntil = e.lockedUntil
		out = append(out, &msg)
	}
	b.ready = b.ready[n:]
	return out, nil
}

// expireLocks returns messages whose lease ran out to the ready list.
func (b *Broker) expireLocks() {
	now := time.Now()
	var expired []string
	b.mu.Lock()
	b.inFlight.Range(func(token string, e *entry) bool {
		if now.After(e.lockedUntil) {
			expired = append(expired, token)
		}
		return true
	})
	b.mu.Unlock()
	for _, token := range expired {
		if e, ok := b.inFlight.LoadAndDelete(token); ok {
			b.requeue(e)
		}
	}
}

func (b *Broker) requeue(e *entry) {
	b.mu.Lock()
	e.msg.DeliveryCount++
	b.ready = append(b.ready, e)
	b.mu.Unlock()
}

func (b *Broker) claim(msg *mq.Message) (*entry, error) {
	e, ok := b.inFlight.LoadAndDelete(msg.LockToken)
	if !ok {
		return nil, mq.LockLost(fmt.Errorf("message %s: %w", msg.ID, ErrUnknownLock))
	}
	return e, nil
}

func (b *Broker) settleErr(action mq.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settleErrs[action]
}

func (b *Broker) Ack(_ context.Context, msg *mq.Message) error {
	if err := b.settleErr(mq.Ack); err != nil {
		return err
	}
	if _, err := b.claim(msg); err != nil {
		return err
	}
	b.mu.Lock()
	b.acked = append(b.acked, msg.ID)
	b.mu.Unlock()
	return nil
}

func (b *Broker) Nack(_ context.Context, msg *mq.Message) error {
	if err := b.settleErr(mq.Nack); err != nil {
		return err
	}
	e, err := b.claim(msg)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.nacked = append(b.nacked, msg.ID)
	b.mu.Unlock()
	b.requeue(e)
	return nil
}

func (b *Broker) DeadLetter(_ context.Context, msg *mq.Message, reason mq.DeadLetterReason) error {
	if err := b.settleErr(mq.DeadLetter); err != nil {
		return err
	}
	e, err := b.claim(msg)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.deadLettered = append(b.deadLettered, DeadLettered{Message: e.msg, Reason: reason})
	b.mu.Unlock()
	return nil
}

func (b *Broker) RenewLock(_ context.Context, msg *mq.Message) (time.Time, error) {
	b.mu.Lock()
	renewErr := b.renewErr
	b.mu.Unlock()
	if renewErr != nil {
		return time.Time{}, renewErr
	}

	e, ok := b.inFlight.Load(msg.LockToken)
	if !ok {
		return time.Time{}, mq.LockLost(fmt.Errorf("message %s: %w", msg.ID, ErrUnknownLock))
	}
	until := time.Now().Add(b.lockDuration)
	b.mu.Lock()
	e.lockedUntil = until
	b.mu.Unlock()
	return until, nil
}

func (b *Broker) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// FailReceive makes the next len(errs) ReceiveBatch calls return errs in order.
func (b *Broker) FailReceive(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiveErrs = append(b.receiveErrs, errs...)
}

// FailRenew makes every RenewLock call return err; nil restores normal renewal.
func (b *Broker) FailRenew(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renewErr = err
}

// FailSettle makes every settlement of the given kind return err.
func (b *Broker) FailSettle(action mq.Action, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settleErrs[action] = err
}

func (b *Broker) ReceiveCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.receiveCalls
}

func (b *Broker) Acked() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.acked...)
}

func (b *Broker) Nacked() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.nacked...)
}

func (b *Broker) DeadLettered() []DeadLettered {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DeadLettered(nil), b.deadLettered...)
}

// Ready returns the number of messages waiting to be received.
func (b *Broker) Ready() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ready)
}

// Locked returns the number of received, unsettled messages.
func (b *Broker) Locked() int {
	return b.inFlight.Size()
}

func (b *Broker) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
