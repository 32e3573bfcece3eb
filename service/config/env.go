package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

// FromEnv overlays the environment onto cfg. Durations are whole seconds.
func FromEnv(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}
	seconds := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number of seconds", name, v))
				return
			}
			*dst = time.Duration(n) * time.Second
		}
	}
	list := func(name string, dst *[]string) {
		if v := os.Getenv(name); v != "" {
			*dst = splitList(v)
		}
	}

	str("BROKER", &cfg.Broker)
	str("DEFAULT_SUBSCRIPTION_NAME", &cfg.DefaultSubscriptionName)
	num("MAX_MESSAGE_COUNT", &cfg.MaxMessageCount)
	seconds("MAX_WAIT_TIME", &cfg.MaxWaitTime)
	seconds("MAX_LOCK_RENEWAL_DURATION", &cfg.MaxLockRenewalDuration)
	seconds("LOCK_RENEWAL_INTERVAL", &cfg.LockRenewalInterval)
	num("RETRY_LIMIT", &cfg.RetryLimit)
	seconds("DRAIN_TIMEOUT", &cfg.DrainTimeout)
	list("SUBSCRIBER_TOPICS", &cfg.Topics)
	list("SUBSCRIBER_FILTER", &cfg.Filter)

	str("SERVICE_BUS_NAMESPACE", &cfg.ServiceBus.Namespace)
	str("SERVICE_BUS_CONNECTION_STRING", &cfg.ServiceBus.ConnectionString)
	str("AZURE_CLIENT_ID", &cfg.ServiceBus.ClientID)
	str("AZURE_TENANT_ID", &cfg.ServiceBus.TenantID)
	str("AZURE_AUTHORITY_HOST", &cfg.ServiceBus.AuthorityHost)
	str("AZURE_FEDERATED_TOKEN_FILE", &cfg.ServiceBus.TokenFile)

	str("AWS_REGION", &cfg.SQS.Region)
	str("SQS_DEAD_LETTER_QUEUE", &cfg.SQS.DeadLetterQueue)
	str("NATS_URL", &cfg.NATS.URL)
	str("NATS_DEAD_LETTER_SUBJECT", &cfg.NATS.DeadLetterSubject)
	str("GCP_PROJECT_ID", &cfg.PubSub.ProjectID)
	str("PUBSUB_DEAD_LETTER_TOPIC", &cfg.PubSub.DeadLetterTopic)
	str("PUBSUB_EMULATOR_HOST", &cfg.PubSub.EmulatorHost)

	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", mq.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
