package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxMessageCount        = 25
	DefaultRetryLimit             = 10
	DefaultLockRenewalInterval    = 20 * time.Second
	DefaultMaxLockRenewalDuration = 5 * time.Minute
	DefaultDrainTimeout           = 30 * time.Second

	// NoRetries as Options.RetryLimit dead-letters a message on its first
	// Retryable outcome.
	NoRetries = -1
)

// Consumer is a consumer worker that processes the messages that it receives.
type Consumer struct {
	client       Client
	handler      MessageHandler
	subscription Subscription
	policy       RetryPolicy
	credentials  TokenRefresher
	logger       zerolog.Logger
	metrics      Metrics

	maxMessageCount        int
	lockRenewalInterval    time.Duration
	maxLockRenewalDuration time.Duration
	drainTimeout           time.Duration
	emptyBackoff           BackoffConfig
	errorBackoff           BackoffConfig

	// slots bounds the messages between dispatch and settlement, across batches.
	slots            *semaphore.Weighted
	inFlight         atomic.Int64
	activeGoroutines sync.WaitGroup
}

func New(opts Options) (*Consumer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	res := &Consumer{
		client:                 opts.Client,
		handler:                opts.Handler,
		subscription:           opts.Subscription,
		policy:                 RetryPolicy{Limit: opts.RetryLimit},
		credentials:            opts.Credentials,
		metrics:                opts.Metrics,
		maxMessageCount:        opts.MaxMessageCount,
		lockRenewalInterval:    opts.LockRenewalInterval,
		maxLockRenewalDuration: opts.MaxLockRenewalDuration,
		drainTimeout:           opts.DrainTimeout,
		emptyBackoff:           opts.EmptyBackoff,
		errorBackoff:           opts.ErrorBackoff,
		slots:                  semaphore.NewWeighted(int64(opts.MaxMessageCount)),
	}
	res.logger = opts.Logger.With().
		Str("component", "Consumer").
		Str("topic", opts.Subscription.Topic).
		Str("subscription", opts.Subscription.Name).
		Logger()

	return res, nil
}

// Run receives and processes messages until ctx is canceled.
//
// On cancellation no further batches are requested. Messages already
// dispatched keep running for up to the drain timeout, after which their
// context is canceled and whatever has not been settled is left for the
// broker to redeliver. Run returns nil after shutdown; a non-nil error means
// the subscription cannot be consumed at all.
func (obj *Consumer) Run(ctx context.Context) error {
	work, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()

	obj.logger.Info().Int("max_message_count", obj.maxMessageCount).Msg("Starting message receiver")
	err := obj.loop(ctx, work)

	if obj.isStopped(obj.drainTimeout) {
		obj.logger.Info().Msg("Finished processing messages")
	} else {
		stopWork()
		obj.logger.Warn().
			Int64("in_flight", obj.inFlight.Load()).
			Dur("drain_timeout", obj.drainTimeout).
			Msg("Drain timeout reached, leaving in-flight messages for redelivery")
	}

	return err
}

func (obj *Consumer) loop(ctx, work context.Context) error {
	emptyWait := obj.emptyBackoff.newBackOff()
	errorWait := obj.errorBackoff.newBackOff()
	refreshed := false

	for {
		if obj.shouldStop(ctx) {
			return nil
		}

		free, err := obj.acquireSlots(ctx)
		if err != nil {
			return nil
		}

		obj.logger.Debug().Int("max_messages", free).Msg("Receiving messages")
		rcvd, err := obj.client.ReceiveBatch(ctx, free)
		if err != nil {
			obj.slots.Release(int64(free))
			if obj.shouldStop(ctx) {
				return nil
			}
			obj.metrics.ReceiveFailed(err)

			if errors.Is(err, ErrUnauthorized) {
				if refreshed {
					return fmt.Errorf("receive from %s after credential refresh: %w", obj.subscription, err)
				}
				refreshed = true
				obj.logger.Warn().Err(err).Msg("Receive unauthorized, refreshing credentials")
				if err := obj.refreshCredentials(ctx); err != nil {
					if obj.shouldStop(ctx) {
						return nil
					}
					return err
				}
				continue
			}

			refreshed = false
			delay := errorWait.NextBackOff()
			obj.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Receive failed")
			if !obj.sleep(ctx, delay) {
				return nil
			}
			continue
		}
		refreshed = false
		errorWait.Reset()

		if len(rcvd) > free {
			obj.logger.Error().
				Int("requested", free).
				Int("received", len(rcvd)).
				Msg("Broker returned more messages than requested, leaving the excess for redelivery")
			for range rcvd[free:] {
				obj.metrics.Abandoned("over_delivery")
			}
			rcvd = rcvd[:free]
		}
		obj.slots.Release(int64(free - len(rcvd)))

		if len(rcvd) == 0 {
			delay := emptyWait.NextBackOff()
			obj.logger.Debug().Dur("retry_in", delay).Msg("No messages received")
			if !obj.sleep(ctx, delay) {
				return nil
			}
			continue
		}
		emptyWait.Reset()

		obj.dispatch(work, Batch{
			ID:           uuid.NewString(),
			Subscription: obj.subscription,
			Messages:     rcvd,
			ReceivedAt:   time.Now(),
		})
	}
}

// acquireSlots blocks until at least one processing slot is free and then
// claims every other free slot, returning how many it holds.
func (obj *Consumer) acquireSlots(ctx context.Context) (int, error) {
	if err := obj.slots.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	n := 1
	for n < obj.maxMessageCount && obj.slots.TryAcquire(1) {
		n++
	}
	return n, nil
}

func (obj *Consumer) refreshCredentials(ctx context.Context) error {
	if obj.credentials == nil {
		obj.logger.Warn().Msg("No credential refresher configured, retrying receive as is")
		return nil
	}
	if err := obj.credentials.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh credentials for %s: %w", obj.subscription, Unauthorized(err))
	}
	return nil
}

func (obj *Consumer) dispatch(work context.Context, batch Batch) {
	log := obj.logger.With().Str("batch_id", batch.ID).Logger()
	log.Info().Int("size", len(batch.Messages)).Msg("Batch received")
	obj.metrics.BatchReceived(len(batch.Messages))

	var pending sync.WaitGroup
	for _, msg := range batch.Messages {
		pending.Add(1)
		obj.activeGoroutines.Add(1)
		go func(msg *Message) {
			defer obj.activeGoroutines.Done()
			defer pending.Done()
			defer obj.slots.Release(1)

			obj.process(work, log, msg)
		}(msg)
	}

	obj.activeGoroutines.Add(1)
	go func() {
		defer obj.activeGoroutines.Done()
		pending.Wait()
		log.Info().
			Int("size", len(batch.Messages)).
			Dur("duration", time.Since(batch.ReceivedAt)).
			Msg("Batch done")
	}()
}

func (obj *Consumer) process(work context.Context, log zerolog.Logger, msg *Message) {
	obj.metrics.InFlight(int(obj.inFlight.Add(1)))
	defer func() { obj.metrics.InFlight(int(obj.inFlight.Add(-1))) }()

	log = log.With().Str("msg_id", msg.ID).Int("delivery_count", msg.DeliveryCount).Logger()

	msgCtx, cancel := context.WithCancel(work)
	defer cancel()

	lock := obj.renewLock(msgCtx, cancel, log, msg)
	start := time.Now()
	outcome := obj.invoke(msgCtx, log, msg)
	lock.stop()
	obj.metrics.Handled(outcome, time.Since(start))

	if lock.lost() {
		log.Warn().Str("outcome", outcome.String()).Msg("Lock lost during processing, leaving message for redelivery")
		obj.metrics.Abandoned("lock_lost")
		return
	}
	if work.Err() != nil {
		log.Warn().Str("outcome", outcome.String()).Msg("Drain timeout reached, leaving message for redelivery")
		obj.metrics.Abandoned("drain_timeout")
		return
	}

	obj.settle(work, log, msg, outcome)
}

func (obj *Consumer) invoke(ctx context.Context, log zerolog.Logger, msg *Message) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Handler panicked")
			outcome = Retryable
		}
	}()

	result, err := obj.handler(ctx, msg)
	if err != nil {
		log.Info().Err(err).Msg("Error processing message")
	}
	return outcomeFor(result, err)
}

func (obj *Consumer) settle(ctx context.Context, log zerolog.Logger, msg *Message, outcome Outcome) {
	action := obj.policy.Decide(outcome, msg.DeliveryCount)
	log = log.With().Str("outcome", outcome.String()).Str("action", action.String()).Logger()

	var err error
	switch action {
	case Ack:
		log.Info().Msg("Handler returned successfully - completing")
		err = obj.client.Ack(ctx, msg)
	case Nack:
		log.Info().Msg("Handler returned retry - abandoning")
		err = obj.client.Nack(ctx, msg)
	case DeadLetter:
		reason := reasonRetryLimit
		if outcome == Poisoned {
			reason = reasonPoisoned
		}
		log.Info().Str("reason", reason.Reason).Msg("Dead-lettering")
		err = obj.client.DeadLetter(ctx, msg, reason)
	}
	obj.metrics.Settled(action, err)

	switch {
	case err == nil:
	case errors.Is(err, ErrLockLost):
		log.Info().Err(err).Msg("Lock already lost, message is resolved by the broker")
	default:
		log.Error().Err(err).Msg("Settlement failed, broker will redeliver after the lock expires")
	}
}

func (obj *Consumer) shouldStop(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return false
}

func (obj *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (obj *Consumer) isStopped(waitFor time.Duration) bool {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		obj.activeGoroutines.Wait()
	}()

	const waitDelay = time.Millisecond * 300
	if waitFor <= 0 {
		waitFor = waitDelay
	}

	select {
	case <-stopped:
		return true
	case <-time.After(waitFor):
		return false
	}
}

type Options struct {
	Client       Client
	Handler      MessageHandler
	Subscription Subscription

	// MaxMessageCount bounds the messages being processed at any time.
	MaxMessageCount int
	// RetryLimit is the number of redeliveries before a retryable message
	// is dead-lettered. Zero selects DefaultRetryLimit, NoRetries allows none.
	RetryLimit int
	// LockRenewalInterval must be shorter than the broker lock duration.
	// A negative value disables renewal.
	LockRenewalInterval    time.Duration
	MaxLockRenewalDuration time.Duration
	DrainTimeout           time.Duration
	EmptyBackoff           BackoffConfig
	ErrorBackoff           BackoffConfig

	Credentials TokenRefresher
	Logger      zerolog.Logger
	Metrics     Metrics
}

func (obj *Options) validate() error {
	var errs []error
	if obj.Handler == nil {
		errs = append(errs, errors.New("Handler must be provided"))
	}
	if obj.Client == nil {
		errs = append(errs, errors.New("Client must be provided"))
	}
	if obj.MaxMessageCount < 0 {
		errs = append(errs, fmt.Errorf("MaxMessageCount must be positive, got %d", obj.MaxMessageCount))
	}
	if obj.RetryLimit < NoRetries {
		errs = append(errs, fmt.Errorf("RetryLimit must not be negative, got %d", obj.RetryLimit))
	}
	if obj.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("DrainTimeout must not be negative, got %s", obj.DrainTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (obj *Options) applyDefaults() {
	if obj.MaxMessageCount == 0 {
		obj.MaxMessageCount = DefaultMaxMessageCount
	}
	switch obj.RetryLimit {
	case 0:
		obj.RetryLimit = DefaultRetryLimit
	case NoRetries:
		obj.RetryLimit = 0
	}
	if obj.LockRenewalInterval == 0 {
		obj.LockRenewalInterval = DefaultLockRenewalInterval
	}
	if obj.MaxLockRenewalDuration == 0 {
		obj.MaxLockRenewalDuration = DefaultMaxLockRenewalDuration
	}
	if obj.DrainTimeout == 0 {
		obj.DrainTimeout = DefaultDrainTimeout
	}
	obj.EmptyBackoff = obj.EmptyBackoff.withDefaults(defaultEmptyBackoff)
	obj.ErrorBackoff = obj.ErrorBackoff.withDefaults(defaultErrorBackoff)
	if obj.Metrics == nil {
		obj.Metrics = NopMetrics{}
	}
}
