package database

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaReader create a consumer-group reader, offsets are committed explicitly by the caller
func NewKafkaReader(k KafkaConnection) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.Brokers,
		Topic:          k.Topic,
		GroupID:        k.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0,
	})
}
