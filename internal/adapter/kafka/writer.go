package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/northlakelabs/weather-oracle/internal/config"
	"github.com/northlakelabs/weather-oracle/internal/domain"
)

// Writer produces resolved prediction outcomes to a Kafka topic.
// It implements resolution.OutcomePublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured outcomes topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaOutcomeTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishOutcomes serializes and publishes resolved prediction records in a
// single WriteMessages call for efficiency.
func (w *Writer) PublishOutcomes(ctx context.Context, records []domain.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PredictionRecord into a Kafka message keyed
// by city so a consumer sees each city's outcomes in order.
func serializeToMessage(record domain.PredictionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_id", Value: []byte(record.ID)},
			{Key: "date", Value: []byte(record.Date)},
		},
	}, nil
}
