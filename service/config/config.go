// Package config loads subscriber settings from built-in defaults, an optional
// YAML file and the environment, in that order.
//
//	cfg, err := config.Load(os.Getenv("SUBSCRIBER_CONFIG_FILE"))
//	if err != nil {
//	    return err // wraps mq.ErrConfiguration
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const (
	BrokerServiceBus = "servicebus"
	BrokerSQS        = "sqs"
	BrokerJetStream  = "jetstream"
	BrokerPubSub     = "pubsub"
)

// Config is the top-level configuration.
type Config struct {
	Broker string `yaml:"broker"`

	DefaultSubscriptionName string        `yaml:"default_subscription_name"`
	MaxMessageCount         int           `yaml:"max_message_count"`
	MaxWaitTime             time.Duration `yaml:"max_wait_time"`
	MaxLockRenewalDuration  time.Duration `yaml:"max_lock_renewal_duration"`
	LockRenewalInterval     time.Duration `yaml:"lock_renewal_interval"`
	RetryLimit              int           `yaml:"retry_limit"`
	DrainTimeout            time.Duration `yaml:"drain_timeout"`

	// Topics lists "topic" or "topic|subscription" entries. Empty means every
	// topic with a registered handler.
	Topics []string `yaml:"topics"`
	// Filter restricts the subscriptions that run to "topic|subscription" entries.
	Filter []string `yaml:"filter"`
	// Subscriptions holds overrides keyed by "topic|subscription".
	Subscriptions map[string]Override `yaml:"subscriptions"`

	ServiceBus ServiceBus `yaml:"servicebus"`
	SQS        SQS        `yaml:"sqs"`
	NATS       NATS       `yaml:"nats"`
	PubSub     PubSub     `yaml:"pubsub"`

	MetricsAddr string `yaml:"metrics_addr"`
	Log         Log    `yaml:"log"`
}

// Override replaces the global receive settings for one subscription.
// Zero values keep the global setting.
type Override struct {
	MaxMessageCount        int           `yaml:"max_message_count"`
	MaxWaitTime            time.Duration `yaml:"max_wait_time"`
	MaxLockRenewalDuration time.Duration `yaml:"max_lock_renewal_duration"`
}

type ServiceBus struct {
	Namespace        string `yaml:"namespace"`
	ConnectionString string `yaml:"connection_string"`

	ClientID      string `yaml:"client_id"`
	TenantID      string `yaml:"tenant_id"`
	AuthorityHost string `yaml:"authority_host"`
	TokenFile     string `yaml:"federated_token_file"`
}

type SQS struct {
	Region          string `yaml:"region"`
	DeadLetterQueue string `yaml:"dead_letter_queue"`
}

type NATS struct {
	URL               string `yaml:"url"`
	DeadLetterSubject string `yaml:"dead_letter_subject"`
}

type PubSub struct {
	ProjectID       string `yaml:"project_id"`
	DeadLetterTopic string `yaml:"dead_letter_topic"`
	// EmulatorHost points the clients at a local emulator without credentials.
	EmulatorHost string `yaml:"emulator_host"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Broker:                 BrokerServiceBus,
		MaxMessageCount:        mq.DefaultMaxMessageCount,
		MaxWaitTime:            30 * time.Second,
		MaxLockRenewalDuration: mq.DefaultMaxLockRenewalDuration,
		LockRenewalInterval:    mq.DefaultLockRenewalInterval,
		RetryLimit:             mq.DefaultRetryLimit,
		DrainTimeout:           mq.DefaultDrainTimeout,
		NATS:                   NATS{URL: "nats://127.0.0.1:4222"},
		MetricsAddr:            ":9090",
		Log:                    Log{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if not
// empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := FromEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", mq.ErrConfiguration, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %w", mq.ErrConfiguration, path, err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (obj Config) Validate() error {
	var errs []error
	if obj.DefaultSubscriptionName == "" {
		errs = append(errs, errors.New("DEFAULT_SUBSCRIPTION_NAME must be set"))
	}
	if obj.MaxMessageCount <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_COUNT must be positive, got %d", obj.MaxMessageCount))
	}
	if obj.MaxWaitTime <= 0 {
		errs = append(errs, fmt.Errorf("MAX_WAIT_TIME must be positive, got %s", obj.MaxWaitTime))
	}
	if obj.MaxLockRenewalDuration < 0 {
		errs = append(errs, fmt.Errorf("MAX_LOCK_RENEWAL_DURATION must not be negative, got %s", obj.MaxLockRenewalDuration))
	}
	if obj.RetryLimit < 0 {
		errs = append(errs, fmt.Errorf("RETRY_LIMIT must not be negative, got %d", obj.RetryLimit))
	}
	if obj.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("DRAIN_TIMEOUT must not be negative, got %s", obj.DrainTimeout))
	}
	for key, o := range obj.Subscriptions {
		if o.MaxMessageCount < 0 || o.MaxWaitTime < 0 || o.MaxLockRenewalDuration < 0 {
			errs = append(errs, fmt.Errorf("subscription %q: overrides must not be negative", key))
		}
	}

	switch obj.Broker {
	case BrokerServiceBus:
		if obj.ServiceBus.Namespace == "" && obj.ServiceBus.ConnectionString == "" {
			errs = append(errs, errors.New("SERVICE_BUS_NAMESPACE or SERVICE_BUS_CONNECTION_STRING must be set"))
		}
	case BrokerSQS:
		if obj.SQS.DeadLetterQueue == "" {
			errs = append(errs, errors.New("SQS_DEAD_LETTER_QUEUE must be set"))
		}
	case BrokerJetStream:
		if obj.NATS.URL == "" {
			errs = append(errs, errors.New("NATS_URL must be set"))
		}
	case BrokerPubSub:
		if obj.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("GCP_PROJECT_ID must be set"))
		}
		if obj.PubSub.DeadLetterTopic == "" {
			errs = append(errs, errors.New("PUBSUB_DEAD_LETTER_TOPIC must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("BROKER %q is not supported", obj.Broker))
	}

	if _, err := zerolog.ParseLevel(obj.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	switch obj.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", obj.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", mq.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
