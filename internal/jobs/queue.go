package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue carries job ids from Submit to the workers.
type Queue interface {
	// Push enqueues id without blocking.
	Push(ctx context.Context, id string) error
	// Pop blocks until an id is available or ctx is done.
	Pop(ctx context.Context) (string, error)
	Close() error
}

// MemoryQueue is a buffered channel.
type MemoryQueue struct {
	ch chan string
}

// NewMemoryQueue creates a queue holding at most size ids.
func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{ch: make(chan string, size)}
}

func (q *MemoryQueue) Push(_ context.Context, id string) error {
	select {
	case q.ch <- id:
		return nil
	default:
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, cap(q.ch))
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (string, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Close() error { return nil }

// RedisQueue is a Redis list shared by every process pointing at the same key.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

// RedisQueueConfig configures a RedisQueue.
type RedisQueueConfig struct {
	Addr        string
	Password    string
	DB          int
	Key         string
	PollTimeout time.Duration
}

// NewRedisQueue connects and pings the server.
func NewRedisQueue(ctx context.Context, cfg RedisQueueConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return newRedisQueue(client, cfg.Key, cfg.PollTimeout), nil
}

func newRedisQueue(client *redis.Client, key string, pollTimeout time.Duration) *RedisQueue {
	if key == "" {
		key = "lexpdf:jobs"
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &RedisQueue{client: client, key: key, pollTimeout: pollTimeout}
}

func (q *RedisQueue) Push(ctx context.Context, id string) error {
	return q.client.RPush(ctx, q.key, id).Err()
}

func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		// BLPop returns [key, value]
		result, err := q.client.BLPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
		if len(result) == 2 {
			return result[1], nil
		}
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
