package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSSink delivers audit events to an AWS SQS queue.
type SQSSink struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSSink constructs an SQS-backed audit sink.
func NewSQSSink(ctx context.Context, region, queueURL string) (*SQSSink, error) {
	if strings.TrimSpace(queueURL) == "" {
		return nil, fmt.Errorf("AUDIT_SQS_QUEUE_URL is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(region) != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQSSink{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// Record delivers the event to the configured queue.
func (s *SQSSink) Record(ctx context.Context, event string, fields map[string]any) error {
	payload, err := EncodeEvent(NewEvent(event, fields))
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

var _ Sink = (*SQSSink)(nil)
