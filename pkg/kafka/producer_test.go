package kafka

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
)

type fakeWriter struct {
	msgs    []kafka.Message
	err     error
	closed  bool
	hadDead bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); ok {
		f.hadDead = true
	}
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishWritesKeyValueAndHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "domain", time.Second)

	err := p.Publish(context.Background(), []byte("order-1"), []byte(`{"a":1}`), map[string]string{
		"event_type": "order_placed",
		"event_id":   "evt-1",
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.True(t, w.hadDead)

	msg := w.msgs[0]
	assert.Equal(t, "order-1", string(msg.Key))
	assert.JSONEq(t, `{"a":1}`, string(msg.Value))
	keys := []string{}
	for _, h := range msg.Headers {
		keys = append(keys, h.Key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"event_id", "event_type"}, keys)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newProducer(&fakeWriter{err: boom}, "domain", 0)
	err := p.Publish(context.Background(), nil, []byte("x"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNewProducerValidatesConfig(t *testing.T) {
	_, err := NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{" "}, DomainTopic: "t"}, nil)
	assert.Error(t, err)
	_, err = NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)

	p, err := NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{"localhost:9092"}, DomainTopic: "t"}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestNilProducer(t *testing.T) {
	var p *Producer
	assert.Error(t, p.Publish(context.Background(), nil, nil, nil))
	assert.NoError(t, p.Close())
}
