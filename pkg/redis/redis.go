package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Config struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func Connect(config Config, log *zap.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     100,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	fields := []zap.Field{zap.String("addr", addr)}
	if info, err := client.Info(ctx, "server").Result(); err == nil {
		stats := ParseInfo(info, "redis_version")
		fields = append(fields, zap.String("version", stats["redis_version"]))
	}
	log.Info("redis connected", fields...)

	return client, nil
}

var statsKeys = []string{
	"redis_version",
	"connected_clients",
	"used_memory_human",
	"keyspace_hits",
	"keyspace_misses",
	"uptime_in_seconds",
}

// GetStats returns a few server counters for the health endpoint.
func GetStats(ctx context.Context, client *redis.Client) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	info, err := client.Info(ctx).Result()
	if err != nil {
		return nil, err
	}
	return ParseInfo(info, statsKeys...), nil
}

// ParseInfo extracts the wanted keys from an INFO reply.
func ParseInfo(info string, keys ...string) map[string]string {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	stats := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if _, ok := wanted[key]; ok {
			stats[key] = value
		}
	}
	return stats
}
