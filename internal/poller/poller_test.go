package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

type mockReader struct {
	messages chan kafkaGo.Message
	closed   bool
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafkaGo.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.closed = true
	return nil
}

type mockClearer struct {
	m       sync.Mutex
	cleared []string
}

func (c *mockClearer) ClearSession(_ context.Context, sessionID string) {
	c.m.Lock()
	defer c.m.Unlock()
	c.cleared = append(c.cleared, sessionID)
}

func (c *mockClearer) get() []string {
	c.m.Lock()
	defer c.m.Unlock()
	return append([]string(nil), c.cleared...)
}

func message(t *testing.T, payload map[string]interface{}) kafkaGo.Message {
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafkaGo.Message{Value: raw}
}

func TestPoller_ClearsSessionFromMessage(t *testing.T) {
	reader := &mockReader{messages: make(chan kafkaGo.Message, 3)}
	clearer := &mockClearer{}
	p := NewPoller(reader, clearer, logger.Discard())

	reader.messages <- kafkaGo.Message{Value: []byte("not json")}
	reader.messages <- message(t, map[string]interface{}{"checkout_id": "c1"})
	reader.messages <- message(t, map[string]interface{}{"checkout_id": "c2", "session_id": "abc"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(clearer.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.DeepEqual(t, []string{"abc"}, clearer.get())

	cancel()
	<-done
	p.Close()
	assert.Assert(t, reader.closed)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_Kafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, cleanupKafka := setupKafka(t)
	defer cleanupKafka()
	createTopic(t, broker, DefaultTopic)

	stores := cartstore.New(storage.NewMemoryStorage(0), cartstore.WithLogger(logger.Discard()))
	factory := service.NewFactory(stores, nil, logger.Discard())

	product := domain.Product{
		ID:      "1",
		Name:    "Console",
		Gallery: []string{"console.jpg"},
		Price:   domain.Money{Amount: decimal.NewFromInt(500), CurrencySymbol: "$"},
	}
	_, err := factory.ForSession("123").Add(ctx, product, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, len(factory.ForSession("123").Read(ctx)))

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  DefaultTopic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	payload, err := json.Marshal(map[string]interface{}{
		"checkout_id":  "chId",
		"session_id":   "123",
		"completed_at": time.Time{},
	})
	require.NoError(t, err)
	err = w.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte("chId"),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "event_type", Value: []byte("checkout")},
		},
	})
	require.NoError(t, err)
	w.Close()

	p := NewPoller(NewKafkaReader(DefaultTopic, DefaultGroupID, broker), factory, logger.Discard())
	defer p.Close()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return len(factory.ForSession("123").Read(ctx)) == 0
	}, 15*time.Second, 500*time.Millisecond)
}
