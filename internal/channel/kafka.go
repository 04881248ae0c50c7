package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/airswap/airswap-bot/internal/model"
)

// Kafka produces published events to one topic, keyed by chain and transaction.
type Kafka struct {
	brokers []string
	topic   string

	mu     sync.RWMutex
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{brokers: brokers, topic: topic}
}

func (k *Kafka) Name() string { return "kafka" }

// Init dials the first broker and builds the writer.
func (k *Kafka) Init(ctx context.Context) error {
	if len(k.brokers) == 0 || k.topic == "" {
		return fmt.Errorf("kafka brokers and topic are required")
	}
	conn, err := kafka.DialContext(ctx, "tcp", k.brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	_ = conn.Close()

	k.mu.Lock()
	k.writer = &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  k.topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	k.mu.Unlock()
	return nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.writer == nil {
		return nil
	}
	err := k.writer.Close()
	k.writer = nil
	return err
}

func (k *Kafka) PublishEvent(ctx context.Context, event model.DomainEvent) error {
	return k.write(ctx, event.ContractName, event, event)
}

func (k *Kafka) PublishSwap(ctx context.Context, swap model.SwapEvent) error {
	return k.write(ctx, model.KindSwapERC20, swap.DomainEvent, swap)
}

func (k *Kafka) write(ctx context.Context, kind string, event model.DomainEvent, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d:%s:%d", event.ChainID, event.TxHash, event.LogIndex)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "event", Value: []byte(event.EventName)},
		},
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.writer == nil {
		return fmt.Errorf("kafka channel closed")
	}
	return k.writer.WriteMessages(ctx, msg)
}
