// Package notify is the kafka-backed notification pipeline. Status
// transitions and order confirmations publish messages; a consumer worker
// renders and delivers them. Senders never block the operation that
// triggered the mail.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer wraps the kafka writer.
type Producer struct {
	w *kafka.Writer
}

// NewProducer configures the writer for reliability:
// - Hash + key: one customer's mail lands on one partition, keeping order.
// - RequireAll: wait for ISR acks to reduce message loss.
// - MaxAttempts/timeouts bound retries.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Producer) Close() error { return p.w.Close() }

// Send publishes one notification, keyed by recipient.
func (p *Producer) Send(ctx context.Context, to, template string, vars map[string]string) error {
	msg := Message{To: to, Template: template, Vars: vars}
	if err := msg.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(to),
		Value: b,
	})
}
