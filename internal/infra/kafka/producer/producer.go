package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/image-resizer/internal/config"
	"github.com/aliskhannn/image-resizer/internal/model"
)

// Producer represents a Kafka producer of rendition events.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   producer,
		cfg:      cfg,
		strategy: s,
	}
}

// Publish serializes the event to JSON and sends it to Kafka.
// The source base name is used as the message key so all renditions of one
// source land on the same partition in catalog order.
func (p *Producer) Publish(ctx context.Context, ev model.RenditionEvent) error {
	key, data, err := encode(ev)
	if err != nil {
		return err
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// Close closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.Client.Close()
}

func encode(ev model.RenditionEvent) ([]byte, []byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return []byte(ev.Source), data, nil
}
