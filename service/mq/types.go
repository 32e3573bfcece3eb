package mq

import (
	"context"
	"fmt"
	"time"
)

type (
	// MessageHandler is the business logic invoked once per delivery attempt.
	// It must be safe to call from multiple goroutines. A non-nil error is
	// treated as Retryable unless it wraps ErrPoisoned.
	MessageHandler func(ctx context.Context, msg *Message) (Outcome, error)

	// Client is the broker side of a single subscription. Implementations
	// must be safe for concurrent use by the receive loop and all workers.
	Client interface {
		// ReceiveBatch returns up to maxCount messages, or an empty slice when
		// none arrived within the broker wait time.
		ReceiveBatch(ctx context.Context, maxCount int) ([]*Message, error)
		Ack(ctx context.Context, msg *Message) error
		Nack(ctx context.Context, msg *Message) error
		DeadLetter(ctx context.Context, msg *Message, reason DeadLetterReason) error
		// RenewLock extends the lease on msg and returns the new expiry.
		RenewLock(ctx context.Context, msg *Message) (time.Time, error)
		Close(ctx context.Context) error
	}

	// TokenRefresher forces the credential behind a Client to be re-issued.
	TokenRefresher interface {
		Refresh(ctx context.Context) error
	}
)

// Message is a single delivery received from a subscription.
type Message struct {
	ID      string
	Payload []byte
	// DeliveryCount is the number of earlier deliveries of this message, as
	// reported by the broker. It is 0 on the first delivery.
	DeliveryCount int
	LockToken     string
	LockedUntil   time.Time
	EnqueuedAt    time.Time
	Subject       string
	Properties    map[string]any

	// Raw is the broker-specific handle. Only the Client that produced the
	// message may interpret it.
	Raw any
}

// Subscription identifies a consumption point on a topic.
type Subscription struct {
	Namespace string
	Topic     string
	Name      string
}

// String renders the subscription in filter form, "topic|name".
func (s Subscription) String() string {
	return s.Topic + "|" + s.Name
}

// Batch is the set of messages returned by one ReceiveBatch call.
type Batch struct {
	ID           string
	Subscription Subscription
	Messages     []*Message
	ReceivedAt   time.Time
}

// Outcome is the handler's verdict for a delivery.
type Outcome int

const (
	Completed Outcome = iota
	Retryable
	Poisoned
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Retryable:
		return "retryable"
	case Poisoned:
		return "poisoned"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Action is the settlement applied to a message.
type Action int

const (
	Ack Action = iota
	Nack
	DeadLetter
)

func (a Action) String() string {
	switch a {
	case Ack:
		return "ack"
	case Nack:
		return "nack"
	case DeadLetter:
		return "dead_letter"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// DeadLetterReason is attached to dead-lettered messages for later inspection.
type DeadLetterReason struct {
	Reason      string
	Description string
}

var (
	reasonPoisoned = DeadLetterReason{
		Reason:      "dropped by subscriber",
		Description: "handler classified the message as poisoned",
	}
	reasonRetryLimit = DeadLetterReason{
		Reason:      "retry limit exceeded",
		Description: "message was not processed within the retry limit",
	}
)
