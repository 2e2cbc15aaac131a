package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/ghalamif/TrackGate/internal/ports"
)

// RedisConfig points at the shared settings keys. Prefix is prepended to every
// key, e.g. "trackgate:u1:" for per-user settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Redis reads settings with plain GETs, so a fleet of agents can share windows
// managed from one place.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{client: rdb, prefix: cfg.Prefix}
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) GetString(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", r.prefix+key, err)
	}
	return v, true, nil
}

func (r *Redis) GetBool(ctx context.Context, key string) (bool, error) {
	v, ok, err := r.GetString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return parseBool(key, v)
}

var _ ports.SettingsStore = (*Redis)(nil)
