package queue

import (
	"context"
	"sync"

	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/redis"
	goredis "github.com/redis/go-redis/v9"
)

// RedisQueue fans messages out over Redis pub/sub. Delivery is at most
// once: subscribers that are not connected miss the message.
type RedisQueue struct {
	client *redis.Client
	log    *logger.Logger

	mu     sync.Mutex
	subs   []*goredis.PubSub
	closed bool
}

// NewRedisQueue creates a queue on the shared Redis client
func NewRedisQueue(client *redis.Client, log *logger.Logger) *RedisQueue {
	return &RedisQueue{client: client, log: log}
}

// Publish sends message on the topic channel. The key travels as the
// first line of the payload.
func (q *RedisQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return q.client.PublishEvent(ctx, topic, encodeFrame(key, message))
}

// Subscribe starts a goroutine that dispatches channel messages to handler
func (q *RedisQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	sub := q.client.Subscribe(ctx, topic)
	q.subs = append(q.subs, sub)
	q.mu.Unlock()

	// wait for the subscription confirmation so that publishes issued
	// after Subscribe returns are not lost
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	q.log.Info("subscribing to topic", "topic", topic, "backend", "redis")

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				q.log.Info("subscription cancelled", "topic", topic)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				key, value := decodeFrame([]byte(msg.Payload))
				if err := handler(ctx, key, value); err != nil {
					q.log.Error("message handler error", "topic", topic, "key", key, "error", err)
				}
			}
		}
	}()

	return nil
}

// Close closes every subscription
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for _, sub := range q.subs {
		if err := sub.Close(); err != nil {
			q.log.Warn("failed to close subscription", "error", err)
		}
	}
	return nil
}

func encodeFrame(key string, value []byte) []byte {
	frame := make([]byte, 0, len(key)+1+len(value))
	frame = append(frame, key...)
	frame = append(frame, '\n')
	return append(frame, value...)
}

func decodeFrame(frame []byte) (string, []byte) {
	for i, b := range frame {
		if b == '\n' {
			return string(frame[:i]), frame[i+1:]
		}
	}
	return "", frame
}
