package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer drains the notification topic and hands each message to the
// sender. Undeliverable mail is logged and dropped; there is no retry beyond
// what the sender does itself.
type Consumer struct {
	r      *kafka.Reader
	sender Sender
	log    *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, sender Sender, log *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		sender: sender,
		log:    log,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancelled or connection lost
		}

		var msg Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.Warn("notification unmarshal", zap.Error(err))
			continue
		}
		if err := msg.Validate(); err != nil {
			c.log.Warn("notification invalid", zap.Error(err))
			continue
		}

		if err := c.sender.Deliver(ctx, msg); err != nil {
			c.log.Warn("notification deliver",
				zap.String("to", msg.To),
				zap.String("template", msg.Template),
				zap.Error(err))
		}
	}
}
