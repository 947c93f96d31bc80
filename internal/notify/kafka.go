package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"quakewatch/internal/types"
)

// kafkaWriteTimeout is the maximum time to wait for a Kafka write.
const kafkaWriteTimeout = 10 * time.Second

// kafkaWriter abstracts *kafka.Writer for testability.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink publishes each alert to a Kafka topic, keyed by event id so
// alerts for the same event land on the same partition. Writes are
// synchronous with leader acknowledgement (at-least-once).
type KafkaSink struct {
	writer kafkaWriter
	topic  string
}

// NewKafkaSink creates a KafkaSink for the comma-separated broker list.
func NewKafkaSink(brokers string, topic string) (*KafkaSink, error) {
	if strings.TrimSpace(brokers) == "" {
		return nil, fmt.Errorf("kafka sink: brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka sink: topic cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: kafkaWriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &KafkaSink{writer: writer, topic: topic}, nil
}

// NewKafkaSinkWithWriter creates a KafkaSink with a caller-supplied writer.
// This constructor exists for testing.
func NewKafkaSinkWithWriter(w kafkaWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: w, topic: topic}
}

// Name implements Sink.
func (k *KafkaSink) Name() string { return "kafka" }

// Notify implements Sink.
func (k *KafkaSink) Notify(ctx context.Context, alert *types.Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("kafka sink: encoding alert: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(alert.Event.ID),
		Value: value,
		Time:  alert.AlertTime,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return types.NewAppError(types.ErrCodeSinkDelivery,
			fmt.Sprintf("publishing alert to topic %s", k.topic), err)
	}
	return nil
}

// Close releases the underlying writer, if it supports closing.
func (k *KafkaSink) Close() error {
	if closer, ok := k.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
