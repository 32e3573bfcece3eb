// Package app runs a consumer for every configured subscription of the
// registered topics.
//
//	registry := app.NewRegistry()
//	_ = app.RegisterEvent(registry, onTaskCreated)
//	err := app.Run(ctx, cfg, registry, app.NewFactory(cfg, logger), logger, collector)
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stuartleeks/service-bus-subscribers/service/config"
	"github.com/stuartleeks/service-bus-subscribers/service/metrics"
	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const closeTimeout = 10 * time.Second

// retryLimit maps a configured limit to mq.Options, where zero means default.
func retryLimit(n int) int {
	if n == 0 {
		return mq.NoRetries
	}
	return n
}

// Run validates cfg, opens a client per subscription and consumes them all
// until ctx is canceled or one of them fails. Nothing is received when the
// configuration is invalid. collector may be nil.
func Run(ctx context.Context, cfg config.Config, registry *Registry, factory BrokerFactory, logger zerolog.Logger, collector *metrics.Collector) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	subs, err := cfg.Resolve(registry.Topics())
	if err != nil {
		return err
	}
	handlers := make([]mq.MessageHandler, len(subs))
	var errs []error
	for i, sub := range subs {
		h, ok := registry.Handler(sub.Topic)
		if !ok {
			errs = append(errs, fmt.Errorf("topic %s: %w", sub.Topic, errNoHandler))
			continue
		}
		handlers[i] = h
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", mq.ErrConfiguration, errors.Join(errs...))
	}

	var clients []mq.Client
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		for _, c := range clients {
			if cerr := c.Close(closeCtx); cerr != nil {
				logger.Warn().Err(cerr).Msg("Closing broker client")
			}
		}
		if cerr := factory.Close(closeCtx); cerr != nil {
			logger.Warn().Err(cerr).Msg("Closing broker connections")
		}
	}()

	consumers := make([]*mq.Consumer, 0, len(subs))
	for i, sub := range subs {
		client, refresher, err := factory.Open(ctx, sub)
		if err != nil {
			return fmt.Errorf("open %s: %w", sub.Subscription, err)
		}
		clients = append(clients, client)

		opts := mq.Options{
			Client:                 client,
			Handler:                handlers[i],
			Subscription:           sub.Subscription,
			MaxMessageCount:        sub.MaxMessageCount,
			RetryLimit:             retryLimit(cfg.RetryLimit),
			LockRenewalInterval:    cfg.LockRenewalInterval,
			MaxLockRenewalDuration: sub.MaxLockRenewalDuration,
			DrainTimeout:           cfg.DrainTimeout,
			Credentials:            refresher,
			Logger:                 logger,
		}
		if collector != nil {
			opts.Metrics = collector.ForSubscription(sub.Subscription)
		}
		consumer, err := mq.New(opts)
		if err != nil {
			return fmt.Errorf("consumer for %s: %w", sub.Subscription, err)
		}
		consumers = append(consumers, consumer)
	}

	logger.Info().Int("subscriptions", len(consumers)).Msg("Starting consumers")
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		g.Go(func() error { return c.Run(gctx) })
	}
	return g.Wait()
}
