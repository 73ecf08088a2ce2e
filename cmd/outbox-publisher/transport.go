package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	"github.com/Gulhayo05/Surprise-Bag/pkg/kafka"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pubsub"
)

// errUndeliverable marks a row that no retry can fix. Such rows are parked.
var errUndeliverable = errors.New("outbox event undeliverable")

// transport delivers one outbox row to the broker.
type transport interface {
	Name() string
	Ping(context.Context) error
	Send(ctx context.Context, msg outboundMessage) error
}

// outboundMessage is broker-neutral. Key is the aggregate id; both brokers
// use it to keep one order's events in sequence.
type outboundMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// openTransport builds the broker named by cfg.Outbox.Transport. The
// returned close function is never nil when err is nil.
func openTransport(ctx context.Context, cfg *config.Config, logg *logger.Logger) (transport, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Outbox.Transport)) {
	case config.OutboxTransportKafka:
		producer, err := kafka.NewProducer(ctx, cfg.Kafka, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		return &kafkaTransport{producer: producer}, producer.Close, nil
	default:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		tr, err := newPubSubTransport(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return tr, client.Close, nil
	}
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pubSubClient interface {
	Ping(context.Context) error
	DomainPublisher() *gcppubsub.Publisher
}

type pubsubTransport struct {
	pinger    func(context.Context) error
	publisher publisher
}

func newPubSubTransport(client pubSubClient) (*pubsubTransport, error) {
	p := client.DomainPublisher()
	if p == nil {
		return nil, errors.New("pubsub domain publisher not configured")
	}
	return &pubsubTransport{pinger: client.Ping, publisher: gcpPublisher{p}}, nil
}

func (t *pubsubTransport) Name() string { return config.OutboxTransportPubSub }

func (t *pubsubTransport) Ping(ctx context.Context) error { return t.pinger(ctx) }

// Send publishes with the key as ordering key. The client pauses a key
// after a failed ordered publish, so the key is resumed before returning
// the error; the row's retry then goes out normally.
func (t *pubsubTransport) Send(ctx context.Context, msg outboundMessage) error {
	res := t.publisher.Publish(ctx, &gcppubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.Key,
	})
	if res == nil {
		return fmt.Errorf("%w: publisher returned nil result", errUndeliverable)
	}
	_, err := res.Get(ctx)
	if err != nil && msg.Key != "" {
		t.publisher.ResumePublish(msg.Key)
	}
	return err
}

// gcpPublisher narrows *gcppubsub.Publisher to the publisher interface.
type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}

func (g gcpPublisher) ResumePublish(key string) { g.p.ResumePublish(key) }

type kafkaProducer interface {
	Publish(ctx context.Context, key, value []byte, headers map[string]string) error
}

// kafkaTransport writes to the domain topic. Keying by aggregate id puts
// every event for an order on one partition.
type kafkaTransport struct {
	producer kafkaProducer
}

func (t *kafkaTransport) Name() string { return config.OutboxTransportKafka }

// Ping is a no-op; the writer dials on first publish.
func (t *kafkaTransport) Ping(context.Context) error { return nil }

func (t *kafkaTransport) Send(ctx context.Context, msg outboundMessage) error {
	return t.producer.Publish(ctx, []byte(msg.Key), msg.Data, msg.Attributes)
}
