// Package kafka publishes classified crash features to a sink topic, for
// consumers that want the stream rather than the exported bucket files.
// The sink is feature-flagged; the pipeline runs identically without it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crash-data-pipeline/internal/config"
	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/webexport"
)

// FeatureWriter produces classified features to a Kafka topic.
type FeatureWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewFeatureWriter creates a Kafka producer for the configured sink topic.
func NewFeatureWriter(cfg *config.Config, logger *slog.Logger) *FeatureWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &FeatureWriter{writer: w, logger: logger}
}

// PublishBatch serializes and publishes features in a single WriteMessages
// call. The message key is the crash id so replays of the same export are
// compacted per crash downstream.
func (w *FeatureWriter) PublishBatch(ctx context.Context, jur string, features []webexport.Feature) error {
	if len(features) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(features))
	for i := range features {
		msg, err := serializeToMessage(jur, features[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d features: %w", len(features), err)
	}
	w.logger.Info("features published", "jurisdiction", jur, "count", len(features))
	return nil
}

func (w *FeatureWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a feature into a Kafka message.
func serializeToMessage(jur string, feature webexport.Feature) (kafkago.Message, error) {
	data, err := json.Marshal(feature)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature %s: %w", feature.Properties.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(feature.Properties.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "jurisdiction", Value: []byte(jur)},
			{Key: "harm", Value: []byte(feature.Properties.Harm)},
			{Key: "published_at", Value: []byte(domain.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
