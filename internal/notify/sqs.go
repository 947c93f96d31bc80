package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"quakewatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink enqueues each alert on an SQS queue for downstream consumers.
type SQSSink struct {
	client   SQSSender
	queueURL string
}

// NewSQSSink creates an SQSSink targeting the given queue URL.
func NewSQSSink(client SQSSender, queueURL string) *SQSSink {
	return &SQSSink{client: client, queueURL: queueURL}
}

// Name implements Sink.
func (s *SQSSink) Name() string { return "sqs" }

// Notify implements Sink.
func (s *SQSSink) Notify(ctx context.Context, alert *types.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("sqs sink: encoding alert: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"zone": {
				DataType:    aws.String("String"),
				StringValue: aws.String(alert.ZoneName),
			},
			"severity": {
				DataType:    aws.String("String"),
				StringValue: aws.String(alert.Severity.String()),
			},
		},
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeSinkDelivery, "sending alert to SQS", err)
	}
	return nil
}
