// Package pubsub implements mq.Client over the Google Cloud Pub/Sub
// synchronous pull API. A subscription named name on topic topic maps to
// projects/{project}/subscriptions/{topic}-{name}.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/apiv1"
	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const (
	DefaultMaxWait = 30 * time.Second
	// Pub/Sub refuses ack deadlines above ten minutes.
	maxAckDeadline = 600 * time.Second

	attrReason      = "DeadLetterReason"
	attrDescription = "DeadLetterErrorDescription"
	attrSource      = "DeadLetterSourceSubscription"
)

// Subscriber is the part of *pubsub.SubscriberClient used here.
type Subscriber interface {
	GetSubscription(ctx context.Context, req *pubsubpb.GetSubscriptionRequest, opts ...gax.CallOption) (*pubsubpb.Subscription, error)
	Pull(ctx context.Context, req *pubsubpb.PullRequest, opts ...gax.CallOption) (*pubsubpb.PullResponse, error)
	Acknowledge(ctx context.Context, req *pubsubpb.AcknowledgeRequest, opts ...gax.CallOption) error
	ModifyAckDeadline(ctx context.Context, req *pubsubpb.ModifyAckDeadlineRequest, opts ...gax.CallOption) error
}

// Publisher is the part of *pubsub.PublisherClient used here.
type Publisher interface {
	Publish(ctx context.Context, req *pubsubpb.PublishRequest, opts ...gax.CallOption) (*pubsubpb.PublishResponse, error)
}

// SubscriptionID is the Pub/Sub subscription that backs sub.
func SubscriptionID(sub mq.Subscription) string {
	return sub.Topic + "-" + sub.Name
}

type Options struct {
	Subscriber   Subscriber
	Publisher    Publisher
	ProjectID    string
	Subscription mq.Subscription
	// DeadLetterTopic receives dead-lettered messages before they are
	// acknowledged on the subscription.
	DeadLetterTopic string

	MaxWait time.Duration
	// AckDeadline is the lock extension requested on renewal. Zero uses the
	// subscription's own ack deadline.
	AckDeadline time.Duration

	Logger zerolog.Logger
}

func (obj *Options) validate() error {
	var errs []error
	if obj.Subscriber == nil {
		errs = append(errs, errors.New("Subscriber must be provided"))
	}
	if obj.Publisher == nil {
		errs = append(errs, errors.New("Publisher must be provided"))
	}
	if obj.ProjectID == "" {
		errs = append(errs, errors.New("ProjectID must be provided"))
	}
	if obj.Subscription.Topic == "" || obj.Subscription.Name == "" {
		errs = append(errs, errors.New("Subscription topic and name must be provided"))
	}
	if obj.DeadLetterTopic == "" {
		errs = append(errs, errors.New("DeadLetterTopic must be provided"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", mq.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

type Client struct {
	subscriber      Subscriber
	publisher       Publisher
	subscription    string
	deadLetterTopic string
	maxWait         time.Duration
	ackDeadline     time.Duration

	logger zerolog.Logger
}

var _ mq.Client = (*Client)(nil)

// Dial opens the subscriber and publisher gRPC clients. Both must be closed
// by the caller.
func Dial(ctx context.Context, opts ...option.ClientOption) (*pubsub.SubscriberClient, *pubsub.PublisherClient, error) {
	sc, err := pubsub.NewSubscriberClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("subscriber client: %w", classify(err))
	}
	pc, err := pubsub.NewPublisherClient(ctx, opts...)
	if err != nil {
		_ = sc.Close()
		return nil, nil, fmt.Errorf("publisher client: %w", classify(err))
	}
	return sc, pc, nil
}

// New looks the subscription up, which checks it exists, reads its ack
// deadline and requires a dead-letter policy: without one Pub/Sub reports no
// delivery attempt, so the retry limit could not be enforced.
func New(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}

	name := fmt.Sprintf("projects/%s/subscriptions/%s", opts.ProjectID, SubscriptionID(opts.Subscription))
	info, err := opts.Subscriber.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", name, classify(err))
	}
	if info.GetDeadLetterPolicy() == nil {
		return nil, fmt.Errorf("%w: subscription %s has no dead-letter policy", mq.ErrConfiguration, name)
	}

	ackDeadline := opts.AckDeadline
	if ackDeadline <= 0 {
		ackDeadline = time.Duration(info.GetAckDeadlineSeconds()) * time.Second
	}
	ackDeadline = min(max(ackDeadline, 10*time.Second), maxAckDeadline)

	return &Client{
		subscriber:      opts.Subscriber,
		publisher:       opts.Publisher,
		subscription:    name,
		deadLetterTopic: fmt.Sprintf("projects/%s/topics/%s", opts.ProjectID, opts.DeadLetterTopic),
		maxWait:         opts.MaxWait,
		ackDeadline:     ackDeadline,
		logger: opts.Logger.With().
			Str("component", "PubSub").
			Str("subscription", name).
			Logger(),
	}, nil
}

// ReceiveBatch pulls up to maxCount messages. A pull that runs out of time is
// an empty batch.
func (obj *Client) ReceiveBatch(ctx context.Context, maxCount int) ([]*mq.Message, error) {
	waitCtx, cancel := context.WithTimeout(ctx, obj.maxWait)
	defer cancel()

	resp, err := obj.subscriber.Pull(waitCtx, &pubsubpb.PullRequest{
		Subscription: obj.subscription,
		MaxMessages:  int32(maxCount),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
			return nil, nil
		}
		return nil, fmt.Errorf("pull: %w", classify(err))
	}

	now := time.Now()
	result := make([]*mq.Message, 0, len(resp.GetReceivedMessages()))
	for _, rm := range resp.GetReceivedMessages() {
		result = append(result, obj.toMessage(rm, now))
	}
	return result, nil
}

func (obj *Client) toMessage(rm *pubsubpb.ReceivedMessage, now time.Time) *mq.Message {
	pm := rm.GetMessage()
	res := &mq.Message{
		ID:          pm.GetMessageId(),
		Payload:     pm.GetData(),
		LockToken:   rm.GetAckId(),
		LockedUntil: now.Add(obj.ackDeadline),
		Raw:         rm,
	}
	if rm.GetDeliveryAttempt() > 0 {
		res.DeliveryCount = int(rm.GetDeliveryAttempt()) - 1
	}
	if pm.GetPublishTime() != nil {
		res.EnqueuedAt = pm.GetPublishTime().AsTime()
	}
	if attrs := pm.GetAttributes(); len(attrs) > 0 {
		res.Properties = make(map[string]any, len(attrs))
		for k, v := range attrs {
			res.Properties[k] = v
		}
		res.Subject = attrs["subject"]
	}
	return res
}

func (obj *Client) Ack(ctx context.Context, msg *mq.Message) error {
	err := obj.subscriber.Acknowledge(ctx, &pubsubpb.AcknowledgeRequest{
		Subscription: obj.subscription,
		AckIds:       []string{msg.LockToken},
	})
	if err != nil {
		return fmt.Errorf("acknowledge %s: %w", msg.ID, classifyAck(err))
	}
	return nil
}

func (obj *Client) Nack(ctx context.Context, msg *mq.Message) error {
	if err := obj.modifyAckDeadline(ctx, msg, 0); err != nil {
		return fmt.Errorf("nack %s: %w", msg.ID, err)
	}
	return nil
}

// DeadLetter publishes a copy carrying the reason to the dead-letter topic,
// then acknowledges the original.
func (obj *Client) DeadLetter(ctx context.Context, msg *mq.Message, reason mq.DeadLetterReason) error {
	attrs := map[string]string{
		attrReason: reason.Reason,
		attrSource: obj.subscription,
	}
	if reason.Description != "" {
		attrs[attrDescription] = reason.Description
	}
	if rm, ok := msg.Raw.(*pubsubpb.ReceivedMessage); ok {
		for k, v := range rm.GetMessage().GetAttributes() {
			if _, taken := attrs[k]; !taken {
				attrs[k] = v
			}
		}
	}

	_, err := obj.publisher.Publish(ctx, &pubsubpb.PublishRequest{
		Topic: obj.deadLetterTopic,
		Messages: []*pubsubpb.PubsubMessage{{
			Data:       msg.Payload,
			Attributes: attrs,
		}},
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.ID, obj.deadLetterTopic, classify(err))
	}
	obj.logger.Debug().Str("msg_id", msg.ID).Str("reason", reason.Reason).Msg("Copied to dead-letter topic")
	return obj.Ack(ctx, msg)
}

func (obj *Client) RenewLock(ctx context.Context, msg *mq.Message) (time.Time, error) {
	until := time.Now().Add(obj.ackDeadline)
	if err := obj.modifyAckDeadline(ctx, msg, obj.ackDeadline); err != nil {
		return time.Time{}, fmt.Errorf("renew lock of %s: %w", msg.ID, err)
	}
	return until, nil
}

func (obj *Client) modifyAckDeadline(ctx context.Context, msg *mq.Message, d time.Duration) error {
	err := obj.subscriber.ModifyAckDeadline(ctx, &pubsubpb.ModifyAckDeadlineRequest{
		Subscription:       obj.subscription,
		AckIds:             []string{msg.LockToken},
		AckDeadlineSeconds: int32(d / time.Second),
	})
	return classifyAck(err)
}

// Close is a no-op; the gRPC clients belong to the caller.
func (obj *Client) Close(context.Context) error { return nil }

func classify(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return mq.Unauthorized(err)
	default:
		return mq.Unavailable(err)
	}
}

// classifyAck is classify for operations addressed by ack id, where an
// unknown or expired id means the lease is gone.
func classifyAck(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound:
		return mq.LockLost(err)
	default:
		return classify(err)
	}
}
