package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pubsubapi "cloud.google.com/go/pubsub/apiv1"
	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/stuartleeks/service-bus-subscribers/service/broker/jetstream"
	"github.com/stuartleeks/service-bus-subscribers/service/broker/pubsub"
	"github.com/stuartleeks/service-bus-subscribers/service/broker/servicebus"
	"github.com/stuartleeks/service-bus-subscribers/service/broker/sqs"
	"github.com/stuartleeks/service-bus-subscribers/service/config"
	"github.com/stuartleeks/service-bus-subscribers/service/credential"
	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

// BrokerFactory opens the broker client of one subscription. Connections
// shared between subscriptions belong to the factory and are released by
// Close, after every client it opened has been closed.
type BrokerFactory interface {
	// Open returns the client for sub and, when the broker authenticates
	// with a refreshable token, the refresher for it.
	Open(ctx context.Context, sub config.Subscription) (mq.Client, mq.TokenRefresher, error)
	Close(ctx context.Context) error
}

// DefaultFactory opens clients for the broker selected by config.Broker.
// Shared connections are created on first use.
type DefaultFactory struct {
	cfg    config.Config
	logger zerolog.Logger

	mu          sync.Mutex
	namespace   *servicebus.Namespace
	credentials *credential.Cache
	sqsAPI      sqs.API
	nc          *nats.Conn
	js          natsjs.JetStream
	psSub       *pubsubapi.SubscriberClient
	psPub       *pubsubapi.PublisherClient
}

var _ BrokerFactory = (*DefaultFactory)(nil)

func NewFactory(cfg config.Config, logger zerolog.Logger) *DefaultFactory {
	return &DefaultFactory{
		cfg:    cfg,
		logger: logger.With().Str("component", "BrokerFactory").Str("broker", cfg.Broker).Logger(),
	}
}

func (f *DefaultFactory) Open(ctx context.Context, sub config.Subscription) (mq.Client, mq.TokenRefresher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.cfg.Broker {
	case config.BrokerServiceBus:
		return f.openServiceBus(sub)
	case config.BrokerSQS:
		return f.openSQS(ctx, sub)
	case config.BrokerJetStream:
		return f.openJetStream(ctx, sub)
	case config.BrokerPubSub:
		return f.openPubSub(ctx, sub)
	default:
		return nil, nil, fmt.Errorf("%w: BROKER %q is not supported", mq.ErrConfiguration, f.cfg.Broker)
	}
}

func (f *DefaultFactory) openServiceBus(sub config.Subscription) (mq.Client, mq.TokenRefresher, error) {
	if f.namespace == nil {
		sb := f.cfg.ServiceBus
		opts := servicebus.NamespaceOptions{
			Namespace:        sb.Namespace,
			ConnectionString: sb.ConnectionString,
			Logger:           f.logger,
		}
		wi := credential.WorkloadIdentityConfig{
			ClientID:      sb.ClientID,
			TenantID:      sb.TenantID,
			AuthorityHost: sb.AuthorityHost,
			TokenFile:     sb.TokenFile,
		}
		if wi.Enabled() && sb.Namespace != "" {
			source, err := credential.WorkloadIdentity(wi)
			if err != nil {
				return nil, nil, err
			}
			f.credentials = credential.NewCache(source, credential.WithLogger(f.logger))
			opts.Credential = f.credentials
			f.logger.Info().Str("namespace", sb.Namespace).Msg("Using workload identity")
		} else {
			f.logger.Info().Msg("Using connection string")
		}

		ns, err := servicebus.NewNamespace(opts)
		if err != nil {
			return nil, nil, err
		}
		f.namespace = ns
	}

	client, err := f.namespace.Subscribe(sub.Subscription, sub.MaxWaitTime)
	if err != nil {
		return nil, nil, err
	}
	if f.credentials == nil {
		return client, nil, nil
	}
	return client, f.credentials, nil
}

func (f *DefaultFactory) openSQS(ctx context.Context, sub config.Subscription) (mq.Client, mq.TokenRefresher, error) {
	if f.sqsAPI == nil {
		api, err := sqs.NewAPI(ctx, f.cfg.SQS.Region)
		if err != nil {
			return nil, nil, err
		}
		f.sqsAPI = api
	}

	client, err := sqs.New(ctx, sqs.Options{
		API:                 f.sqsAPI,
		QueueName:           sqs.QueueName(sub.Subscription),
		DeadLetterQueueName: f.cfg.SQS.DeadLetterQueue,
		WaitTime:            sub.MaxWaitTime,
		Logger:              f.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, nil, nil
}

func (f *DefaultFactory) openJetStream(ctx context.Context, sub config.Subscription) (mq.Client, mq.TokenRefresher, error) {
	if f.js == nil {
		nc, js, err := jetstream.Connect(f.cfg.NATS.URL)
		if err != nil {
			return nil, nil, err
		}
		f.nc, f.js = nc, js
	}

	client, err := jetstream.New(ctx, jetstream.Options{
		JetStream:         f.js,
		Subscription:      sub.Subscription,
		MaxWait:           sub.MaxWaitTime,
		DeadLetterSubject: f.cfg.NATS.DeadLetterSubject,
		Logger:            f.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, nil, nil
}

func (f *DefaultFactory) openPubSub(ctx context.Context, sub config.Subscription) (mq.Client, mq.TokenRefresher, error) {
	if f.psSub == nil {
		var opts []option.ClientOption
		if host := f.cfg.PubSub.EmulatorHost; host != "" {
			opts = append(opts,
				option.WithEndpoint(host),
				option.WithoutAuthentication(),
				option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		sc, pc, err := pubsub.Dial(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		f.psSub, f.psPub = sc, pc
	}

	client, err := pubsub.New(ctx, pubsub.Options{
		Subscriber:      f.psSub,
		Publisher:       f.psPub,
		ProjectID:       f.cfg.PubSub.ProjectID,
		Subscription:    sub.Subscription,
		DeadLetterTopic: f.cfg.PubSub.DeadLetterTopic,
		MaxWait:         sub.MaxWaitTime,
		Logger:          f.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, nil, nil
}

// Close releases the shared connections.
func (f *DefaultFactory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.namespace != nil {
		errs = append(errs, f.namespace.Close(ctx))
		f.namespace = nil
	}
	if f.nc != nil {
		f.nc.Close()
		f.nc, f.js = nil, nil
	}
	if f.psSub != nil {
		errs = append(errs, f.psSub.Close(), f.psPub.Close())
		f.psSub, f.psPub = nil, nil
	}
	return errors.Join(errs...)
}
