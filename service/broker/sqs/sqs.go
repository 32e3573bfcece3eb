// Package sqs implements mq.Client over an Amazon SQS queue.
//
// The visibility timeout plays the role of the message lock: a received
// message is invisible to other consumers until it is deleted (ack), made
// visible again (nack) or its visibility is extended (lock renewal).
package sqs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const (
	maxBatch    = 10
	maxWaitTime = 20 * time.Second

	DefaultVisibilityTimeout = time.Minute

	attrReason      = "DeadLetterReason"
	attrDescription = "DeadLetterErrorDescription"
)

//go:generate moq -out ./mock_api_test.go ./ API

// API is the part of the SQS client used here.
type API interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type Options struct {
	// API defaults to an SQS client built from the default AWS config.
	API       API
	AWSRegion string

	QueueName           string
	DeadLetterQueueName string

	// WaitTime is the long-poll duration, capped at 20s.
	WaitTime          time.Duration
	VisibilityTimeout time.Duration

	Logger zerolog.Logger
}

func (obj *Options) validate() error {
	var errs []error
	if obj.QueueName == "" {
		errs = append(errs, errors.New("QueueName must be provided"))
	}
	if obj.DeadLetterQueueName == "" {
		errs = append(errs, errors.New("DeadLetterQueueName must be provided"))
	}
	if obj.WaitTime < 0 || obj.VisibilityTimeout < 0 {
		errs = append(errs, errors.New("WaitTime and VisibilityTimeout must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", mq.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

type Client struct {
	api    API
	logger zerolog.Logger

	queueURL           string
	deadLetterQueueURL string
	waitTime           time.Duration
	visibilityTimeout  time.Duration
}

var _ mq.Client = (*Client)(nil)

// NewAPI builds an SQS client from the default AWS config chain. An empty
// region leaves the choice to the chain.
func NewAPI(ctx context.Context, region string) (*sqs.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", mq.ErrConfiguration, err)
	}
	return sqs.NewFromConfig(cfg), nil
}

// QueueName is the queue that backs sub.
func QueueName(sub mq.Subscription) string {
	return sub.Topic + "-" + sub.Name
}

// New resolves the queue URLs and returns a ready client.
func New(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	res := &Client{
		api:               opts.API,
		logger:            opts.Logger.With().Str("component", "SQSClient").Str("queue", opts.QueueName).Logger(),
		waitTime:          min(opts.WaitTime, maxWaitTime),
		visibilityTimeout: opts.VisibilityTimeout,
	}
	if res.visibilityTimeout == 0 {
		res.visibilityTimeout = DefaultVisibilityTimeout
	}

	if res.api == nil {
		api, err := NewAPI(ctx, opts.AWSRegion)
		if err != nil {
			return nil, err
		}
		res.api = api
	}

	var err error
	if res.queueURL, err = res.lookupQueue(ctx, opts.QueueName); err != nil {
		return nil, err
	}
	if res.deadLetterQueueURL, err = res.lookupQueue(ctx, opts.DeadLetterQueueName); err != nil {
		return nil, err
	}

	return res, nil
}

func (obj *Client) lookupQueue(ctx context.Context, name string) (string, error) {
	result, err := obj.api.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("get queue url %s: %w", name, classify(err))
	}
	return aws.ToString(result.QueueUrl), nil
}

func (obj *Client) ReceiveBatch(ctx context.Context, maxCount int) ([]*mq.Message, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(obj.queueURL),
		MaxNumberOfMessages:         int32(min(max(maxCount, 1), maxBatch)),
		WaitTimeSeconds:             int32(obj.waitTime / time.Second),
		VisibilityTimeout:           int32(obj.visibilityTimeout / time.Second),
		MessageAttributeNames:       []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll},
	}

	output, err := obj.api.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", classify(err))
	}

	lockedUntil := time.Now().Add(obj.visibilityTimeout)
	result := make([]*mq.Message, 0, len(output.Messages))
	for _, msg := range output.Messages {
		result = append(result, toMessage(msg, lockedUntil))
	}
	return result, nil
}

func toMessage(msg types.Message, lockedUntil time.Time) *mq.Message {
	res := &mq.Message{
		ID:          aws.ToString(msg.MessageId),
		Payload:     []byte(aws.ToString(msg.Body)),
		LockToken:   aws.ToString(msg.ReceiptHandle),
		LockedUntil: lockedUntil,
		Raw:         msg,
	}

	if n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil && n > 0 {
		res.DeliveryCount = n - 1
	}
	if ms, err := strconv.ParseInt(msg.Attributes[string(types.MessageSystemAttributeNameSentTimestamp)], 10, 64); err == nil {
		res.EnqueuedAt = time.UnixMilli(ms)
	}

	if len(msg.MessageAttributes) > 0 {
		res.Properties = make(map[string]any, len(msg.MessageAttributes))
		for k, v := range msg.MessageAttributes {
			if v.StringValue != nil {
				res.Properties[k] = *v.StringValue
			} else {
				res.Properties[k] = v.BinaryValue
			}
		}
	}
	if subject, ok := res.Properties["Subject"].(string); ok {
		res.Subject = subject
	}

	return res
}

func (obj *Client) Ack(ctx context.Context, msg *mq.Message) error {
	input := &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(obj.queueURL),
		ReceiptHandle: aws.String(msg.LockToken),
	}
	if _, err := obj.api.DeleteMessage(ctx, input); err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ID, classify(err))
	}
	return nil
}

func (obj *Client) Nack(ctx context.Context, msg *mq.Message) error {
	if err := obj.changeVisibility(ctx, msg, 0); err != nil {
		return fmt.Errorf("release message %s: %w", msg.ID, err)
	}
	return nil
}

func (obj *Client) RenewLock(ctx context.Context, msg *mq.Message) (time.Time, error) {
	if err := obj.changeVisibility(ctx, msg, obj.visibilityTimeout); err != nil {
		return time.Time{}, fmt.Errorf("extend visibility of %s: %w", msg.ID, err)
	}
	return time.Now().Add(obj.visibilityTimeout), nil
}

func (obj *Client) changeVisibility(ctx context.Context, msg *mq.Message, timeout time.Duration) error {
	input := &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(obj.queueURL),
		ReceiptHandle:     aws.String(msg.LockToken),
		VisibilityTimeout: int32(timeout / time.Second),
	}
	_, err := obj.api.ChangeMessageVisibility(ctx, input)
	return classify(err)
}

// DeadLetter copies the message to the dead-letter queue with the reason as
// message attributes, then deletes the original.
func (obj *Client) DeadLetter(ctx context.Context, msg *mq.Message, reason mq.DeadLetterReason) error {
	attrs := map[string]types.MessageAttributeValue{
		attrReason: {DataType: aws.String("String"), StringValue: aws.String(reason.Reason)},
	}
	if reason.Description != "" {
		attrs[attrDescription] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(reason.Description)}
	}
	if raw, ok := msg.Raw.(types.Message); ok {
		for k, v := range raw.MessageAttributes {
			if _, taken := attrs[k]; !taken && len(attrs) < 10 {
				attrs[k] = v
			}
		}
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(obj.deadLetterQueueURL),
		MessageBody:       aws.String(string(msg.Payload)),
		MessageAttributes: attrs,
	}
	if _, err := obj.api.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send %s to dead-letter queue: %w", msg.ID, classify(err))
	}

	if err := obj.Ack(ctx, msg); err != nil {
		obj.logger.Warn().Err(err).Str("msg_id", msg.ID).Msg("Dead-lettered message could not be deleted, it may be delivered again")
		return err
	}
	return nil
}

func (obj *Client) Close(context.Context) error { return nil }

// classify maps SQS and AWS API errors onto the mq error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		invalidHandle *types.ReceiptHandleIsInvalid
		notInflight   *types.MessageNotInflight
	)
	if errors.As(err, &invalidHandle) || errors.As(err, &notInflight) {
		return mq.LockLost(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidClientTokenId", "ExpiredToken", "ExpiredTokenException",
			"UnrecognizedClientException", "AccessDenied", "AccessDeniedException",
			"SignatureDoesNotMatch", "InvalidSecurity":
			return mq.Unauthorized(err)
		}
	}
	return mq.Unavailable(err)
}
