// Package servicebus implements mq.Client over Azure Service Bus topic
// subscriptions in peek-lock mode.
package servicebus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const DefaultMaxWaitTime = 30 * time.Second

// receiver is the part of *azservicebus.Receiver used here.
type receiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error
	AbandonMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.AbandonMessageOptions) error
	DeadLetterMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.DeadLetterOptions) error
	RenewMessageLock(ctx context.Context, msg *azservicebus.ReceivedMessage, options *azservicebus.RenewMessageLockOptions) error
	Close(ctx context.Context) error
}

// NamespaceOptions selects how to reach the namespace: a token credential
// (workload identity) or, failing that, a connection string.
type NamespaceOptions struct {
	Namespace        string
	Credential       azcore.TokenCredential
	ConnectionString string
	Logger           zerolog.Logger
}

// Namespace owns the AMQP connection shared by the subscriptions of one
// Service Bus namespace.
type Namespace struct {
	client *azservicebus.Client
	logger zerolog.Logger
}

func NewNamespace(opts NamespaceOptions) (*Namespace, error) {
	var (
		client *azservicebus.Client
		err    error
	)
	switch {
	case opts.Credential != nil && opts.Namespace != "":
		client, err = azservicebus.NewClient(opts.Namespace, opts.Credential, nil)
	case opts.ConnectionString != "":
		client, err = azservicebus.NewClientFromConnectionString(opts.ConnectionString, nil)
	default:
		return nil, fmt.Errorf("%w: a namespace with a credential or a connection string is required", mq.ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: service bus client: %w", mq.ErrConfiguration, err)
	}

	return &Namespace{
		client: client,
		logger: opts.Logger.With().Str("component", "ServiceBus").Str("namespace", opts.Namespace).Logger(),
	}, nil
}

// Subscribe opens a peek-lock receiver for sub.
func (ns *Namespace) Subscribe(sub mq.Subscription, maxWaitTime time.Duration) (*Client, error) {
	r, err := ns.client.NewReceiverForSubscription(sub.Topic, sub.Name, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return nil, fmt.Errorf("receiver for %s: %w", sub, classify(err))
	}
	return newClient(r, maxWaitTime, ns.logger.With().Str("topic", sub.Topic).Str("subscription", sub.Name).Logger()), nil
}

func (ns *Namespace) Close(ctx context.Context) error {
	return ns.client.Close(ctx)
}

type Client struct {
	receiver    receiver
	maxWaitTime time.Duration
	logger      zerolog.Logger
}

var _ mq.Client = (*Client)(nil)

func newClient(r receiver, maxWaitTime time.Duration, logger zerolog.Logger) *Client {
	if maxWaitTime <= 0 {
		maxWaitTime = DefaultMaxWaitTime
	}
	return &Client{receiver: r, maxWaitTime: maxWaitTime, logger: logger}
}

// ReceiveBatch waits up to the max wait time for messages. Running out of
// time with nothing received is an empty batch, not an error.
func (obj *Client) ReceiveBatch(ctx context.Context, maxCount int) ([]*mq.Message, error) {
	waitCtx, cancel := context.WithTimeout(ctx, obj.maxWaitTime)
	defer cancel()

	rcvd, err := obj.receiver.ReceiveMessages(waitCtx, maxCount, nil)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("receive messages: %w", classify(err))
	}

	result := make([]*mq.Message, 0, len(rcvd))
	for _, msg := range rcvd {
		result = append(result, toMessage(msg))
	}
	return result, nil
}

func toMessage(msg *azservicebus.ReceivedMessage) *mq.Message {
	res := &mq.Message{
		ID:         msg.MessageID,
		Payload:    msg.Body,
		LockToken:  uuid.UUID(msg.LockToken).String(),
		Properties: msg.ApplicationProperties,
		Raw:        msg,
	}
	if msg.DeliveryCount > 0 {
		res.DeliveryCount = int(msg.DeliveryCount) - 1
	}
	if msg.LockedUntil != nil {
		res.LockedUntil = *msg.LockedUntil
	}
	if msg.EnqueuedTime != nil {
		res.EnqueuedAt = *msg.EnqueuedTime
	}
	if msg.Subject != nil {
		res.Subject = *msg.Subject
	}
	return res
}

func received(msg *mq.Message) (*azservicebus.ReceivedMessage, error) {
	raw, ok := msg.Raw.(*azservicebus.ReceivedMessage)
	if !ok || raw == nil {
		return nil, fmt.Errorf("message %s was not received from service bus", msg.ID)
	}
	return raw, nil
}

func (obj *Client) Ack(ctx context.Context, msg *mq.Message) error {
	raw, err := received(msg)
	if err != nil {
		return err
	}
	if err := obj.receiver.CompleteMessage(ctx, raw, nil); err != nil {
		return fmt.Errorf("complete %s: %w", msg.ID, classify(err))
	}
	return nil
}

func (obj *Client) Nack(ctx context.Context, msg *mq.Message) error {
	raw, err := received(msg)
	if err != nil {
		return err
	}
	if err := obj.receiver.AbandonMessage(ctx, raw, nil); err != nil {
		return fmt.Errorf("abandon %s: %w", msg.ID, classify(err))
	}
	return nil
}

func (obj *Client) DeadLetter(ctx context.Context, msg *mq.Message, reason mq.DeadLetterReason) error {
	raw, err := received(msg)
	if err != nil {
		return err
	}
	opts := &azservicebus.DeadLetterOptions{Reason: &reason.Reason}
	if reason.Description != "" {
		opts.ErrorDescription = &reason.Description
	}
	if err := obj.receiver.DeadLetterMessage(ctx, raw, opts); err != nil {
		return fmt.Errorf("dead-letter %s: %w", msg.ID, classify(err))
	}
	return nil
}

func (obj *Client) RenewLock(ctx context.Context, msg *mq.Message) (time.Time, error) {
	raw, err := received(msg)
	if err != nil {
		return time.Time{}, err
	}
	if err := obj.receiver.RenewMessageLock(ctx, raw, nil); err != nil {
		return time.Time{}, fmt.Errorf("renew lock of %s: %w", msg.ID, classify(err))
	}
	if raw.LockedUntil == nil {
		return time.Time{}, nil
	}
	return *raw.LockedUntil, nil
}

func (obj *Client) Close(ctx context.Context) error {
	return obj.receiver.Close(ctx)
}

func classify(err error) error {
	if err == nil {
		return nil
	}

	var sbErr *azservicebus.Error
	if errors.As(err, &sbErr) {
		return classifyCode(sbErr.Code, err)
	}
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return mq.Unauthorized(err)
	}
	return mq.Unavailable(err)
}

func classifyCode(code azservicebus.Code, err error) error {
	switch code {
	case azservicebus.CodeUnauthorizedAccess:
		return mq.Unauthorized(err)
	case azservicebus.CodeLockLost:
		return mq.LockLost(err)
	default:
		return mq.Unavailable(err)
	}
}
