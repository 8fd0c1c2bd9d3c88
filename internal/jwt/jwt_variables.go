package jwt

import (
	"time"

	"support-hub-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

var (
	AGENT_SECRET string
	RedisClient  *redis.Client
)

const RefreshTokenTTL = 24 * 30 * time.Hour

const (
	RoleAgent Role = iota
)

var RoleSecrets = map[Role]string{}

func init() {
	AGENT_SECRET = env.Get("AGENT_SECRET")
	RoleSecrets[RoleAgent] = AGENT_SECRET

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get("AUTH_REDIS_URL"),
		Password: env.Get("AUTH_REDIS_PASS"),
		DB:       0,
	})
}
