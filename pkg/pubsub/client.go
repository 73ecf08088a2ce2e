package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
)

var errNotInitialized = errors.New("pubsub client not initialized")

// Client owns the Pub/Sub connection and the single publisher for the
// domain topic. Publishers batch in the background, so one is shared.
type Client struct {
	conn  *pubsub.Client
	topic string

	once      sync.Once
	publisher *pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless the domain topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	topic, err := topicName(gcp.ProjectID, cfg.DomainTopic)
	if err != nil {
		return nil, err
	}
	conn, err := pubsub.NewClient(ctx, strings.TrimSpace(gcp.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}

	c := &Client{conn: conn, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client ready")
	}
	return c, nil
}

// topicName expands a bare topic id to projects/<project>/topics/<id>;
// full resource names pass through.
func topicName(project, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("pubsub domain topic is required")
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic, nil
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return "", errors.New("gcp project id is required")
	}
	return "projects/" + project + "/topics/" + topic, nil
}

// DomainPublisher returns the shared publisher with message ordering on, so
// messages sharing an ordering key are delivered in publish order.
func (c *Client) DomainPublisher() *pubsub.Publisher {
	if c == nil || c.conn == nil {
		return nil
	}
	c.once.Do(func() {
		c.publisher = c.conn.Publisher(c.topic)
		c.publisher.EnableMessageOrdering = true
	})
	return c.publisher
}

// Ping checks that the domain topic is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errNotInitialized
	}
	_, err := c.conn.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub topic %s does not exist", c.topic)
	case err != nil:
		return fmt.Errorf("get pubsub topic %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes the publisher, if one was created, then closes the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.conn.Close()
}
