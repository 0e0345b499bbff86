package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Repo streams every changed tick and every sentiment summary to Kafka.
// The writer is async: publishing never waits on the broker while the
// aggregate store holds its lock. Delivery errors are logged from the
// completion callback.
type Repo struct {
	writer         messageWriter
	tickTopic      string
	sentimentTopic string
}

func New(brokers []string, tickTopic, sentimentTopic string) (*Repo, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{}, // 同一 exchange:product 落到同一分区，保证顺序
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(messages)).Msg("kafka delivery failed")
			}
		},
	}
	return newRepo(w, tickTopic, sentimentTopic), nil
}

func newRepo(w messageWriter, tickTopic, sentimentTopic string) *Repo {
	if strings.TrimSpace(tickTopic) == "" {
		tickTopic = "marketpulse.ticks"
	}
	if strings.TrimSpace(sentimentTopic) == "" {
		sentimentTopic = "marketpulse.sentiment"
	}
	return &Repo{writer: w, tickTopic: tickTopic, sentimentTopic: sentimentTopic}
}

func (r *Repo) PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error {
	t := snap.Changed
	if t.Exchange == "" {
		return nil
	}
	v, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	msg := kafka.Message{
		Topic: r.tickTopic,
		Key:   []byte(t.Exchange + ":" + t.Product),
		Value: v,
		Time:  t.ObservedAt,
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: kafka: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *Repo) PublishSentiment(ctx context.Context, summary domain.SentimentSummary) error {
	v, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	msg := kafka.Message{Topic: r.sentimentTopic, Key: []byte("summary"), Value: v, Time: time.Now()}
	if summary.UpdatedAt != nil {
		msg.Time = *summary.UpdatedAt
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: kafka: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *Repo) Close() error {
	if r.writer != nil {
		return r.writer.Close()
	}
	return nil
}

var _ port.PublisherCloser = (*Repo)(nil)
