package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

// Subscription is a subscription to run with its effective receive settings.
type Subscription struct {
	mq.Subscription

	MaxMessageCount        int
	MaxWaitTime            time.Duration
	MaxLockRenewalDuration time.Duration
}

// ParseSubscription parses "topic" or "topic|subscription". The default
// subscription name is used when none is given.
func ParseSubscription(s, defaultName string) (mq.Subscription, error) {
	topic, name, found := strings.Cut(strings.TrimSpace(s), "|")
	topic = strings.TrimSpace(topic)
	name = strings.TrimSpace(name)
	if !found || name == "" {
		name = defaultName
	}
	if topic == "" || name == "" || strings.Contains(name, "|") {
		return mq.Subscription{}, fmt.Errorf("invalid subscription %q, want topic or topic|subscription", s)
	}
	return mq.Subscription{Topic: topic, Name: name}, nil
}

// Resolve returns the subscriptions to run. Topics default to the
// registered ones; the filter, when set, keeps only the listed
// "topic|subscription" pairs. Duplicates are dropped.
func (obj Config) Resolve(registered []string) ([]Subscription, error) {
	entries := obj.Topics
	if len(entries) == 0 {
		entries = registered
	}

	var (
		errs []error
		out  []Subscription
		seen = make(map[string]bool)
	)
	for _, e := range entries {
		sub, err := ParseSubscription(e, obj.DefaultSubscriptionName)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sub.Namespace = obj.ServiceBus.Namespace
		key := sub.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(obj.Filter) > 0 && !slices.Contains(obj.Filter, key) {
			continue
		}
		out = append(out, obj.effective(sub))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", mq.ErrConfiguration, errors.Join(errs...))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no subscriptions to run (topics %v, filter %v)", mq.ErrConfiguration, entries, obj.Filter)
	}
	return out, nil
}

func (obj Config) effective(sub mq.Subscription) Subscription {
	res := Subscription{
		Subscription:           sub,
		MaxMessageCount:        obj.MaxMessageCount,
		MaxWaitTime:            obj.MaxWaitTime,
		MaxLockRenewalDuration: obj.MaxLockRenewalDuration,
	}
	o, ok := obj.Subscriptions[sub.String()]
	if !ok {
		return res
	}
	if o.MaxMessageCount > 0 {
		res.MaxMessageCount = o.MaxMessageCount
	}
	if o.MaxWaitTime > 0 {
		res.MaxWaitTime = o.MaxWaitTime
	}
	if o.MaxLockRenewalDuration > 0 {
		res.MaxLockRenewalDuration = o.MaxLockRenewalDuration
	}
	return res
}
