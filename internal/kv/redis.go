package kv

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
)

// redisPrefix namespaces the console's documents inside a shared Redis
// instance.
const redisPrefix = "pos:state:"

type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, addr string, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, redisPrefix+key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisPrefix+key).Err()
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, 16)
	iter := r.client.Scan(ctx, 0, redisPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(redisPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
