package repository

import (
	"context"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	pkgkafka "github.com/wrenwealth/Archantum/pkg/kafka"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

// KafkaNotifier implements Notifier by publishing alert JSON to a topic.
// Messages are keyed by dedup key so every episode of one opportunity lands
// in the same partition, in order.
type KafkaNotifier struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaNotifier(producer *pkgkafka.Producer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	return n.producer.Publish(ctx, n.topic, []byte(alert.DedupKey), alert)
}

func (n *KafkaNotifier) Close() error {
	if n.producer != nil {
		return n.producer.Close()
	}
	return nil
}

var _ repository.Notifier = (*KafkaNotifier)(nil)

// LogNotifier is the fallback Notifier when Kafka is disabled: alerts go to
// the structured log and nowhere else.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, alert *models.Alert) error {
	n.log.Info("alert",
		logger.String("id", alert.ID),
		logger.String("kind", string(alert.Kind)),
		logger.String("tier", string(alert.Tier)),
		logger.String("dedup_key", alert.DedupKey),
		logger.Strings("markets", alert.MarketIDs),
		logger.Float64("score", alert.Score.Composite),
		logger.Float64("net_cents", alert.NetProfitCents),
		logger.String("reason", alert.Reason),
	)
	return nil
}

func (n *LogNotifier) Close() error { return nil }

var _ repository.Notifier = (*LogNotifier)(nil)
