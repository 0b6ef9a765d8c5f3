package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const resultKeyPrefix = "facelens:result:"

var ErrCacheMiss = errors.New("cache miss")

// IRedis caches serialized analysis results by image hash.
type IRedis interface {
	GetResult(ctx context.Context, imageHash string) ([]byte, error)
	SetResult(ctx context.Context, imageHash string, payload []byte, expiration time.Duration) error
	Close() error
}

type Config struct {
	Address  string
	Password string
	DB       int
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) IRedis {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

func (r *redisClient) GetResult(ctx context.Context, imageHash string) ([]byte, error) {
	key := resultKeyPrefix + imageHash
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.Debug(fmt.Sprintf("No cached result for key %s", key))
		return nil, ErrCacheMiss
	} else if err != nil {
		r.log.Error(fmt.Sprintf("Error getting cached result for key %s: %v", key, err))
		return nil, err
	}
	return val, nil
}

func (r *redisClient) SetResult(ctx context.Context, imageHash string, payload []byte, expiration time.Duration) error {
	key := resultKeyPrefix + imageHash
	if err := r.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		r.log.Error(fmt.Sprintf("Error caching result for key %s: %v", key, err))
		return err
	}
	r.log.Debug(fmt.Sprintf("Cached result for key %s with expiration %v", key, expiration))
	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
