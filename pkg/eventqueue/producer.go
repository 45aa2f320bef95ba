package eventqueue

import (
	"context"
	"strings"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type producer struct {
	kafkaWriter *kafka.Writer
	topicName   string
	logger      lumber.Logger
}

// noop is used when no brokers are configured, event publishing is optional.
type noop struct{}

func (noop) Notify(ctx context.Context, event *core.ExecutionEvent) error { return nil }
func (noop) Close() error                                                 { return nil }

// NewProducer returns the execution-lifecycle event producer. With no kafka
// brokers configured a no-op producer is returned, events are best-effort.
func NewProducer(cfg *config.Config, logger lumber.Logger) core.EventProducer {
	if cfg.Kafka.Brokers == "" {
		logger.Debugf("no kafka brokers configured, execution events disabled")
		return noop{}
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:          strings.Split(cfg.Kafka.Brokers, ","),
		Topic:            cfg.Kafka.ExecutionEventConfig.Topic,
		ErrorLogger:      kafka.LoggerFunc(logger.Errorf),
		Balancer:         &kafka.RoundRobin{},
		CompressionCodec: kafka.Snappy.Codec(),
		RequiredAcks:     int(kafka.RequireOne), // will wait for acknowledgement from only master.
	})
	logger.Debugf("Kafka Producer connection created successfully for topic %s", writer.Topic)
	return &producer{
		logger:      logger,
		kafkaWriter: writer,
		topicName:   writer.Topic,
	}
}

func (p *producer) Notify(ctx context.Context, event *core.ExecutionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(event.ExecutionID), Value: payload}
	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Errorf("failed to write message on kafka topic: %s for executionID: %s, error: %v",
			p.topicName, event.ExecutionID, err)
		return err
	}
	return nil
}

func (p *producer) Close() error {
	return p.kafkaWriter.Close()
}
