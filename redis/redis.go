package redis

import (
	"collab-canvas/internal/config"
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var Ctx = context.Background()
var RedisClient *redis.Client

func InitRedis() {
	RedisClient = redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})
	_, err := RedisClient.Ping(Ctx).Result()
	if err != nil {
		logrus.Warn("Redis not available. Running without Redis.")
		RedisClient = nil
		return
	}

	logrus.Info("Redis connected successfully.")
}

// Available reports whether a Redis connection was established. Callers
// fall back to in-process stores when it wasn't.
func Available() bool {
	return RedisClient != nil
}
