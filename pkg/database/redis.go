package database

import (
	"context"
	"fmt"

	"edu-archive-go/internal/config"
	"edu-archive-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// NewRedis 初始化 Redis 客户端连接。Addr 为空时返回 nil，表示不启用 Redis。
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		log.Info("Redis 未配置, 索引脏集合将只记录日志")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
