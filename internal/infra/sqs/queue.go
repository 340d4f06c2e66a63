package sqs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
)

const (
	maxBatchSize      = 10
	maxWaitSeconds    = 20
	maxVisibilitySecs = 12 * 60 * 60
)

// API is the subset of the SQS client the worker uses.
type API interface {
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *awssqs.ChangeMessageVisibilityInput, optFns ...func(*awssqs.Options)) (*awssqs.ChangeMessageVisibilityOutput, error)
	GetQueueAttributes(ctx context.Context, params *awssqs.GetQueueAttributesInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueAttributesOutput, error)
}

// NewClient builds an SQS client from the default credential chain. A
// non-empty endpoint overrides the service endpoint (LocalStack, ElasticMQ).
func NewClient(ctx context.Context, region, endpoint string) (*awssqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return awssqs.NewFromConfig(cfg, func(o *awssqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Queue wraps one SQS queue URL.
type Queue struct {
	api API
	url string
}

func NewQueue(api API, queueURL string) *Queue {
	return &Queue{api: api, url: queueURL}
}

// Receive long-polls for up to maxMessages deliveries.
func (q *Queue) Receive(ctx context.Context, maxMessages, waitSeconds int) ([]entity.Delivery, error) {
	out, err := q.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: int32(clamp(maxMessages, 1, maxBatchSize)),
		WaitTimeSeconds:     int32(clamp(waitSeconds, 0, maxWaitSeconds)),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}

	deliveries := make([]entity.Delivery, 0, len(out.Messages))
	for _, m := range out.Messages {
		deliveries = append(deliveries, entity.Delivery{
			MessageID:     aws.ToString(m.MessageId),
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			ReceiveCount:  receiveCount(m.Attributes),
		})
	}
	return deliveries, nil
}

func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// ExtendVisibility sets the delivery's visibility timeout, rounded up to whole
// seconds and capped at the SQS maximum of 12 hours.
func (q *Queue) ExtendVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error {
	secs := int((timeout + time.Second - 1) / time.Second)
	_, err := q.api.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.url),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: int32(clamp(secs, 0, maxVisibilitySecs)),
	})
	if err != nil {
		return fmt.Errorf("change message visibility: %w", err)
	}
	return nil
}

// VisibilityTimeout reads the queue's default visibility timeout.
func (q *Queue) VisibilityTimeout(ctx context.Context) (time.Duration, error) {
	out, err := q.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.url),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameVisibilityTimeout},
	})
	if err != nil {
		return 0, fmt.Errorf("get queue attributes: %w", err)
	}
	raw := out.Attributes[string(types.QueueAttributeNameVisibilityTimeout)]
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse visibility timeout %q: %w", raw, err)
	}
	return time.Duration(secs) * time.Second, nil
}

func receiveCount(attrs map[string]string) int {
	n, err := strconv.Atoi(attrs[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
