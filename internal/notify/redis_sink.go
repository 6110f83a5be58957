package notify

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultChannel is the Redis channel events are published on.
const DefaultChannel = "slt:predictions"

// Publisher is the part of a Redis client the sink uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and checks the connection. A failed ping is
// logged, not returned; go-redis reconnects on the next command.
func NewRedisClient(opts RedisOptions, logger logrus.FieldLogger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithField("error", err.Error()).Warnf("failed to connect to Redis at %s", opts.Address)
	} else {
		logger.Infof("connected to Redis at %s", opts.Address)
	}

	return client
}

// RedisSink publishes every event as JSON on a Redis channel.
type RedisSink struct {
	client  Publisher
	channel string
}

// NewRedisSink creates a RedisSink. An empty channel uses DefaultChannel.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

// Channel returns the channel events go to.
func (s *RedisSink) Channel() string { return s.channel }

func (s *RedisSink) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.channel, err)
	}
	return nil
}
