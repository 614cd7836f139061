package database

import (
	"context"
	"fmt"
	"time"

	"tourism_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry dials the first broker until it answers, then returns
// an async-safe writer for k.Topic.
func NewKafkaWriterWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	var err error

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		var conn *kafka.Conn
		conn, err = kafka.DialContext(ctx, "tcp", k.Brokers[0])
		if err == nil {
			conn.Close()
			logger.Log.Info("kafka broker reachable", zap.String("broker", k.Brokers[0]), zap.Int("attempt", attempt))
			return &kafka.Writer{
				Addr:         kafka.TCP(k.Brokers...),
				Topic:        k.Topic,
				Balancer:     &kafka.Hash{},
				RequiredAcks: kafka.RequireOne,
			}, nil
		}

		logger.Log.Warn("kafka broker unreachable, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(k.RetryInterval)
	}

	return nil, fmt.Errorf("kafka: broker not reachable after %d attempts: %w", k.RetryCount, err)
}
