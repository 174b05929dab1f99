package game

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

type RedisGameStateTracker struct {
	rdclient *redis.Client
}

func NewRedisGameStateTracker(redisURL string, redisPW string, redisDB int) *RedisGameStateTracker {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &RedisGameStateTracker{
		rdclient: rdclient,
	}
}

func (r *RedisGameStateTracker) Load(gameCode string) ([]byte, error) {
	snapshot, err := r.rdclient.Get(context.Background(), r.key(gameCode)).Result()
	if err == redis.Nil {
		return nil, errors.Errorf("Game state for code: %s is not found", gameCode)
	} else if err != nil {
		return nil, err
	}
	return []byte(snapshot), nil
}

func (r *RedisGameStateTracker) Save(gameCode string, snapshot []byte) error {
	return r.rdclient.Set(context.Background(), r.key(gameCode), snapshot, 0).Err()
}

func (r *RedisGameStateTracker) Remove(gameCode string) error {
	return r.rdclient.Del(context.Background(), r.key(gameCode)).Err()
}

func (r *RedisGameStateTracker) key(gameCode string) string {
	return "gamestate:" + gameCode
}
