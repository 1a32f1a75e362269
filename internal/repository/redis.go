package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/pkg/logger"
	"portfolio-messageboard/backend/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps messages in a hash keyed by id plus a list that
// preserves insertion order.
type RedisRepository struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

var _ MessageRepository = (*RedisRepository)(nil)

// NewRedisRepository connects to redisURL and verifies the connection
func NewRedisRepository(redisURL, prefix string, log *logger.Logger) (*RedisRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: connect to redis: %w", ErrStorageIO, err)
	}

	return NewRedisRepositoryWithClient(client, prefix, log), nil
}

// NewRedisRepositoryWithClient creates a repository from an existing client
func NewRedisRepositoryWithClient(client *redis.Client, prefix string, log *logger.Logger) *RedisRepository {
	if log == nil {
		log = logger.Nop()
	}
	if prefix == "" {
		prefix = "messageboard"
	}
	return &RedisRepository{
		client: client,
		prefix: prefix,
		log:    log.WithComponent("redis-store"),
	}
}

// Name implements MessageRepository
func (r *RedisRepository) Name() string {
	return "redis"
}

func (r *RedisRepository) messagesKey() string {
	return r.prefix + ":messages"
}

func (r *RedisRepository) orderKey() string {
	return r.prefix + ":order"
}

// ListAll returns messages in insertion order. Entries that fail to decode are skipped.
func (r *RedisRepository) ListAll(ctx context.Context) ([]models.Message, error) {
	msgs, err := r.listAll(ctx)
	metrics.ObserveStore(r.Name(), "list", err)
	return msgs, err
}

func (r *RedisRepository) listAll(ctx context.Context) ([]models.Message, error) {
	ids, err := r.client.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list message ids: %w", ErrStorageIO, err)
	}
	if len(ids) == 0 {
		return []models.Message{}, nil
	}

	values, err := r.client.HMGet(ctx, r.messagesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load messages: %w", ErrStorageIO, err)
	}

	msgs := make([]models.Message, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			metrics.StoreCorruptions.Inc()
			r.log.Warn("Skipping undecodable message", "id", ids[i], "error", err.Error())
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Create stores msg under its id. The caller assigns the id. Storing an id
// again replaces the record and moves it to the end of the order list.
func (r *RedisRepository) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		return models.Message{}, ErrMissingID
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("encode message: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.messagesKey(), msg.ID, data)
		pipe.LRem(ctx, r.orderKey(), 0, msg.ID)
		pipe.RPush(ctx, r.orderKey(), msg.ID)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: save message: %w", ErrStorageIO, err)
	}
	metrics.ObserveStore(r.Name(), "create", err)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetByID returns nil, nil when id is unknown
func (r *RedisRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := r.getByID(ctx, id)
	metrics.ObserveStore(r.Name(), "get", err)
	return msg, err
}

func (r *RedisRepository) getByID(ctx context.Context, id string) (*models.Message, error) {
	raw, err := r.client.HGet(ctx, r.messagesKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load message: %w", ErrStorageIO, err)
	}

	var msg models.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		metrics.StoreCorruptions.Inc()
		r.log.Warn("Stored message is undecodable", "id", id, "error", err.Error())
		return nil, nil
	}
	return &msg, nil
}

// DeleteByID removes id and returns the removed message
func (r *RedisRepository) DeleteByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := r.getByID(ctx, id)
	if err != nil || msg == nil {
		metrics.ObserveStore(r.Name(), "delete", err)
		return nil, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.messagesKey(), id)
		pipe.LRem(ctx, r.orderKey(), 1, id)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: delete message: %w", ErrStorageIO, err)
	}
	metrics.ObserveStore(r.Name(), "delete", err)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
