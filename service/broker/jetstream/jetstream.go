// Package jetstream implements mq.Client over a NATS JetStream durable pull
// consumer. The topic names the stream and the subscription names the
// durable consumer; AckWait is the message lock.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const (
	DefaultMaxWait = 30 * time.Second
	DefaultAckWait = time.Minute

	headerReason      = "Dead-Letter-Reason"
	headerDescription = "Dead-Letter-Description"
)

type Options struct {
	JetStream    jetstream.JetStream
	Subscription mq.Subscription

	// MaxWait bounds a single pull request.
	MaxWait time.Duration
	// CreateConsumer creates the durable consumer when it does not exist,
	// using AckWait as its lock duration.
	CreateConsumer bool
	AckWait        time.Duration
	// DeadLetterSubject, when set, receives a copy of every dead-lettered
	// message before it is terminated.
	DeadLetterSubject string

	Logger zerolog.Logger
}

func (obj *Options) validate() error {
	var errs []error
	if obj.JetStream == nil {
		errs = append(errs, errors.New("JetStream must be provided"))
	}
	if obj.Subscription.Topic == "" || obj.Subscription.Name == "" {
		errs = append(errs, errors.New("Subscription topic and name must be provided"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", mq.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

type Client struct {
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	maxWait           time.Duration
	ackWait           time.Duration
	deadLetterSubject string
	logger            zerolog.Logger
}

var _ mq.Client = (*Client)(nil)

// Connect dials url and returns a JetStream context.
func Connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url, nats.Name("subscriber"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", url, classify(err))
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}
	return nc, js, nil
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.AckWait <= 0 {
		opts.AckWait = DefaultAckWait
	}

	stream, durable := opts.Subscription.Topic, opts.Subscription.Name
	var (
		consumer jetstream.Consumer
		err      error
	)
	if opts.CreateConsumer {
		consumer, err = opts.JetStream.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
			Durable:   durable,
			AckPolicy: jetstream.AckExplicitPolicy,
			AckWait:   opts.AckWait,
		})
	} else {
		consumer, err = opts.JetStream.Consumer(ctx, stream, durable)
	}
	if err != nil {
		return nil, fmt.Errorf("consumer %s on stream %s: %w", durable, stream, classify(err))
	}

	res := &Client{
		js:                opts.JetStream,
		consumer:          consumer,
		maxWait:           opts.MaxWait,
		ackWait:           opts.AckWait,
		deadLetterSubject: opts.DeadLetterSubject,
		logger: opts.Logger.With().
			Str("component", "JetStream").
			Str("stream", stream).
			Str("consumer", durable).
			Logger(),
	}
	if info := consumer.CachedInfo(); info != nil && info.Config.AckWait > 0 {
		res.ackWait = info.Config.AckWait
	}
	return res, nil
}

// ReceiveBatch pulls up to maxCount messages, waiting at most MaxWait.
func (obj *Client) ReceiveBatch(ctx context.Context, maxCount int) ([]*mq.Message, error) {
	wait := obj.maxWait
	if deadline, ok := ctx.Deadline(); ok {
		wait = min(wait, time.Until(deadline))
	}
	if wait <= 0 {
		return nil, ctx.Err()
	}

	batch, err := obj.consumer.Fetch(maxCount, jetstream.FetchMaxWait(wait))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", classify(err))
	}

	var result []*mq.Message
	for {
		select {
		case <-ctx.Done():
			go obj.release(result, batch.Messages())
			return nil, ctx.Err()
		case msg, ok := <-batch.Messages():
			if !ok {
				if err := batch.Error(); err != nil && !isEmpty(err) {
					if len(result) > 0 {
						obj.logger.Debug().Err(err).Int("received", len(result)).Msg("Fetch ended early")
						return result, nil
					}
					return nil, fmt.Errorf("fetch: %w", classify(err))
				}
				return result, nil
			}
			result = append(result, obj.toMessage(msg))
		}
	}
}

// release naks messages fetched for a canceled receive, including those still
// arriving on pending until the fetch ends.
func (obj *Client) release(fetched []*mq.Message, pending <-chan jetstream.Msg) {
	nak := func(msg jetstream.Msg) {
		if err := msg.Nak(); err != nil {
			obj.logger.Debug().Err(err).Msg("Releasing fetched message")
		}
	}
	for _, m := range fetched {
		if raw, err := received(m); err == nil {
			nak(raw)
		}
	}
	for msg := range pending {
		nak(msg)
	}
}

func isEmpty(err error) bool {
	return errors.Is(err, jetstream.ErrNoMessages) || errors.Is(err, nats.ErrTimeout)
}

func (obj *Client) toMessage(msg jetstream.Msg) *mq.Message {
	res := &mq.Message{
		Payload:     msg.Data(),
		Subject:     msg.Subject(),
		LockedUntil: time.Now().Add(obj.ackWait),
		Raw:         msg,
	}
	if md, err := msg.Metadata(); err == nil {
		res.ID = strconv.FormatUint(md.Sequence.Stream, 10)
		res.LockToken = strconv.FormatUint(md.Sequence.Consumer, 10)
		res.EnqueuedAt = md.Timestamp
		if md.NumDelivered > 0 {
			res.DeliveryCount = int(md.NumDelivered) - 1
		}
	}
	if id := msg.Headers().Get(nats.MsgIdHdr); id != "" {
		res.ID = id
	}
	if hdr := msg.Headers(); len(hdr) > 0 {
		res.Properties = make(map[string]any, len(hdr))
		for k := range hdr {
			res.Properties[k] = hdr.Get(k)
		}
	}
	return res
}

func received(msg *mq.Message) (jetstream.Msg, error) {
	raw, ok := msg.Raw.(jetstream.Msg)
	if !ok || raw == nil {
		return nil, fmt.Errorf("message %s was not received from jetstream", msg.ID)
	}
	return raw, nil
}

func (obj *Client) Ack(ctx context.Context, msg *mq.Message) error {
	raw, err := received(msg)
	if err != nil {
		return err
	}
	if err := raw.DoubleAck(ctx); err != nil {
		return fmt.Errorf("ack %s: %w", msg.ID, classify(err))
	}
	return nil
}

func (obj *Client) Nack(_ context.Context, msg *mq.Message) error {
	raw, err := received(msg)
	if err != nil {
		return err
	}
	if err := raw.Nak(); err != nil {
		return fmt.Errorf("nak %s: %w", msg.ID, classify(err))
	}
	return nil
}

// DeadLetter terminates the message so it is never redelivered, after
// copying it to the dead-letter subject when one is configured.
func (obj *Client) DeadLetter(ctx context.Context, msg *mq.Message, reason mq.DeadLetterReason) error {
	raw, err := received(msg)
	if err != nil {
		return err
	}

	if obj.deadLetterSubject != "" {
		out := nats.NewMsg(obj.deadLetterSubject)
		out.Data = msg.Payload
		for k, v := range raw.Headers() {
			out.Header[k] = v
		}
		out.Header.Set(headerReason, reason.Reason)
		if reason.Description != "" {
			out.Header.Set(headerDescription, reason.Description)
		}
		// a redelivered copy would be a duplicate on the dead-letter stream
		out.Header.Del(nats.MsgIdHdr)
		if _, err := obj.js.PublishMsg(ctx, out); err != nil {
			return fmt.Errorf("publish %s to %s: %w", msg.ID, obj.deadLetterSubject, classify(err))
		}
	}

	if err := raw.TermWithReason(reason.Reason); err != nil {
		return fmt.Errorf("term %s: %w", msg.ID, classify(err))
	}
	return nil
}

func (obj *Client) RenewLock(_ context.Context, msg *mq.Message) (time.Time, error) {
	raw, err := received(msg)
	if err != nil {
		return time.Time{}, err
	}
	if err := raw.InProgress(); err != nil {
		return time.Time{}, fmt.Errorf("in progress %s: %w", msg.ID, classify(err))
	}
	return time.Now().Add(obj.ackWait), nil
}

// Close is a no-op; the NATS connection belongs to the caller.
func (obj *Client) Close(context.Context) error { return nil }

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, nats.ErrAuthorization),
		errors.Is(err, nats.ErrAuthExpired),
		errors.Is(err, nats.ErrAuthRevoked):
		return mq.Unauthorized(err)
	case errors.Is(err, jetstream.ErrMsgAlreadyAckd),
		errors.Is(err, jetstream.ErrMsgNotBound):
		return mq.LockLost(err)
	default:
		return mq.Unavailable(err)
	}
}
