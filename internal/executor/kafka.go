package executor

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tempus/internal/metrics"
)

// KafkaExecutor publishes the job payload to target (or the
// configured default topic when target is empty) using a process-wide
// writer with acks=all and idempotent-equivalent retry settings.
type KafkaExecutor struct {
	writer       *kafka.Writer
	defaultTopic string
	timeout      time.Duration
	sink         metrics.Sink
	log          *zap.SugaredLogger
}

// NewKafkaExecutor builds a shared writer against bootstrapServers.
func NewKafkaExecutor(bootstrapServers, defaultTopic string, producerRetries int, batchSize int, compression string, timeout time.Duration, sink metrics.Sink, log *zap.SugaredLogger) *KafkaExecutor {
	comp := kafka.Snappy
	switch compression {
	case "gzip":
		comp = kafka.Gzip
	case "lz4":
		comp = kafka.Lz4
	case "zstd":
		comp = kafka.Zstd
	case "none":
		comp = 0
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(bootstrapServers),
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  producerRetries,
		BatchBytes:   int64(batchSize),
		Compression:  comp,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: timeout,
		// Idempotence: kafka-go has no direct enable.idempotence flag,
		// so durability is approximated via RequireAll + bounded
		// retries; the broker-side producer id dedup kafka-go does
		// not expose is out of reach of this client.
	}

	return &KafkaExecutor{
		writer:       writer,
		defaultTopic: defaultTopic,
		timeout:      timeout,
		sink:         sink,
		log:          log,
	}
}

func (e *KafkaExecutor) Execute(ctx context.Context, target string, payload []byte) error {
	topic := target
	if topic == "" {
		topic = e.defaultTopic
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := e.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		e.log.Warnw("kafka executor publish error", "topic", topic, "error", err)
		return err
	}

	e.sink.IncKafkaMessages()
	e.log.Debugw("kafka executor published", "topic", topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (e *KafkaExecutor) Close() error { return e.writer.Close() }
