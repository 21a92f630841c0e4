package messaging

import (
	"context"
	"strings"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/awsconfig"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// sqsSendAPI is the subset of the SQS client used here.
type sqsSendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

var sqsDescriptor = component.Descriptor{
	Name:        "messaging.sqs_send",
	Description: "Sends a message to an Amazon SQS queue",
	Group:       "messaging",
	Inputs: []component.InputDef{
		{Name: "message", Type: component.TypeText},
		{Name: "group_id", Type: component.TypeText, Optional: true, Description: "Required for FIFO queues"},
		{Name: "deduplication_id", Type: component.TypeText, Optional: true},
	},
	Output: component.TypeJSON,
	Config: append([]component.ConfigField{
		{Key: "queue_url", Required: true, Env: "SQS_QUEUE_URL"},
		{Key: "delay_seconds", Default: 0},
	}, awsconfig.Fields()...),
	SideEffects: "enqueues an SQS message",
}

type sqsSend struct {
	component.Base
	client *component.Lazy[sqsSendAPI]
}

func newSQSSend(cfg component.Config) (component.Component, error) {
	return &sqsSend{
		Base: component.NewBase(sqsDescriptor, cfg),
		client: component.NewLazy(func(ctx context.Context) (sqsSendAPI, error) {
			awsCfg, err := awsconfig.Load(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
				o.BaseEndpoint = awsconfig.Endpoint(cfg)
			}), nil
		}),
	}, nil
}

func (s *sqsSend) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := s.Require("queue_url"); err != nil {
		return nil, err
	}
	body := in.Text("message")
	if body == "" {
		return nil, s.InvalidInput("message", "must not be empty")
	}
	if len(body) > 256*1024 {
		return nil, s.InvalidInput("message", "exceeds the 256 KiB SQS limit")
	}
	queueURL := s.Config().String("queue_url")
	fifo := strings.HasSuffix(queueURL, ".fifo")
	groupID := in.Text("group_id")
	if fifo && groupID == "" {
		return nil, s.InvalidInput("group_id", "required for FIFO queues")
	}
	delay := s.Config().Int("delay_seconds", 0)
	if delay < 0 || delay > 900 {
		return nil, component.Configuration(s.Name(), "delay_seconds", "must be between 0 and 900")
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	}
	if fifo {
		input.MessageGroupId = aws.String(groupID)
		if dedup := in.Text("deduplication_id"); dedup != "" {
			input.MessageDeduplicationId = aws.String(dedup)
		}
	} else {
		input.DelaySeconds = int32(delay)
	}

	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, s.External("client", err)
	}
	out, err := client.SendMessage(ctx, input)
	if err != nil {
		return nil, s.External("SendMessage", err)
	}
	return map[string]any{"message_id": aws.ToString(out.MessageId)}, nil
}
