package messaging

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"strings"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

var kafkaDescriptor = component.Descriptor{
	Name:        "messaging.kafka_publish",
	Description: "Produces one record to a Kafka topic and waits for acknowledgement",
	Group:       "messaging",
	Inputs: []component.InputDef{
		{Name: "topic", Type: component.TypeText},
		{Name: "payload", Type: component.TypeText},
		{Name: "key", Type: component.TypeText, Optional: true, Description: "Partitioning key"},
	},
	Output: component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "brokers", Required: true, Env: "KAFKA_BROKERS", Description: "Comma-separated host:port list"},
		{Key: "sasl_mechanism", Description: "PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512"},
		{Key: "username"},
		{Key: "password", Secret: true, Env: "KAFKA_PASSWORD"},
		{Key: "tls", Default: false},
		{Key: "client_id", Default: "workflow-components"},
		{Key: "max_retries", Default: 3},
	},
	SideEffects: "appends a record to a Kafka topic",
}

var (
	sha256Gen scram.HashGeneratorFcn = sha256.New
	sha512Gen scram.HashGeneratorFcn = sha512.New
)

// scramClient implements sarama.SCRAMClient on top of xdg-go/scram.
type scramClient struct {
	*scram.Client
	*scram.ClientConversation
	scram.HashGeneratorFcn
}

func (x *scramClient) Begin(userName, password, authzID string) error {
	client, err := x.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	x.Client = client
	x.ClientConversation = client.NewConversation()
	return nil
}

func (x *scramClient) Step(challenge string) (string, error) {
	return x.ClientConversation.Step(challenge)
}

func (x *scramClient) Done() bool {
	return x.ClientConversation.Done()
}

// saramaConfig translates component configuration into a producer config.
func saramaConfig(cfg component.Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.String("client_id")
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = cfg.Int("max_retries", 3)
	sc.Producer.Return.Successes = true
	if cfg.Bool("tls", false) {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	mech := strings.ToUpper(cfg.String("sasl_mechanism"))
	if mech == "" {
		return sc, nil
	}
	sc.Net.SASL.Enable = true
	sc.Net.SASL.User = cfg.String("username")
	sc.Net.SASL.Password = cfg.String("password")
	switch mech {
	case sarama.SASLTypePlaintext:
		sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	case sarama.SASLTypeSCRAMSHA256:
		sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{HashGeneratorFcn: sha256Gen}
		}
	case sarama.SASLTypeSCRAMSHA512:
		sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{HashGeneratorFcn: sha512Gen}
		}
	default:
		return nil, component.Configuration(kafkaDescriptor.Name, "sasl_mechanism", "unsupported mechanism %q", mech)
	}
	return sc, nil
}

type kafkaPublish struct {
	component.Base
	producer *component.Lazy[sarama.SyncProducer]
}

func newKafkaPublish(cfg component.Config) (component.Component, error) {
	return &kafkaPublish{
		Base: component.NewBase(kafkaDescriptor, cfg),
		producer: component.NewLazy(func(context.Context) (sarama.SyncProducer, error) {
			sc, err := saramaConfig(cfg)
			if err != nil {
				return nil, err
			}
			return sarama.NewSyncProducer(cfg.StringSlice("brokers"), sc)
		}),
	}, nil
}

// Close shuts the producer down.
func (k *kafkaPublish) Close() error { return k.producer.Close() }

func (k *kafkaPublish) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := k.Require("brokers"); err != nil {
		return nil, err
	}
	if _, err := saramaConfig(k.Config()); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(in.Text("topic"))
	if topic == "" {
		return nil, k.InvalidInput("topic", "must not be empty")
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.StringEncoder(in.Text("payload")),
	}
	if key := in.Text("key"); key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	producer, err := k.producer.Get(ctx)
	if err != nil {
		return nil, k.External("connect", err)
	}
	partition, offset, err := producer.SendMessage(msg)
	if err != nil {
		return nil, k.External("produce", err)
	}
	return map[string]any{"topic": topic, "partition": int64(partition), "offset": offset}, nil
}
