package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"policydesk/pkg/platform/circuit"
)

// Producer is the async produce half of *kgo.Client.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaSink publishes notifications as JSON records keyed by session id. While the
// broker keeps failing, notifications are also handed to the fallback sink.
type KafkaSink struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	fallback Sink
	logger   *slog.Logger
}

type KafkaOption func(*KafkaSink)

func WithFallback(s Sink) KafkaOption {
	return func(k *KafkaSink) {
		k.fallback = s
	}
}

func WithBreaker(b *circuit.Breaker) KafkaOption {
	return func(k *KafkaSink) {
		k.breaker = b
	}
}

func NewKafkaSink(producer Producer, topic string, logger *slog.Logger, opts ...KafkaOption) *KafkaSink {
	k := &KafkaSink{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("notify-kafka", circuit.WithFailureThreshold(3)),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *KafkaSink) Notify(ctx context.Context, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		k.logger.ErrorContext(ctx, "failed to encode notification", "error", err)
		return
	}
	if k.breaker.IsOpen() && k.fallback != nil {
		k.fallback.Notify(ctx, n)
	}

	record := &kgo.Record{Topic: k.topic, Key: []byte(n.SessionID), Value: payload}
	// the request context ends before delivery completes
	k.producer.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err == nil {
			if _, change := k.breaker.RecordSuccess(); change.Closed {
				k.logger.Info("notification stream recovered", "topic", k.topic)
			}
			return
		}
		if _, change := k.breaker.RecordFailure(); change.Opened {
			k.logger.Warn("notification stream failing, using fallback", "topic", k.topic, "error", err)
		}
	})
}
