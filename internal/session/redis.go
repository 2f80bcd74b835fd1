package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SceneMCP-Agent/internal/llm"
)

// RedisConfig 描述 Redis 会话存储的连接参数。
type RedisConfig struct {
	Address    string
	Password   string
	DB         int
	KeyPrefix  string
	MaxEntries int
	TTL        time.Duration
}

// RedisStore 把会话记忆存进 Redis list,带 TTL 与长度上限。
type RedisStore struct {
	client     *redis.Client
	prefix     string
	maxEntries int
	ttl        time.Duration
}

// NewRedisStore 创建 Redis 会话存储。
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "scenemcp:session:"
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, maxEntries: maxEntries, ttl: ttl}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Append 追加一轮交互并裁剪到上限,同时续期 TTL。
func (s *RedisStore) Append(ctx context.Context, sessionID string, entry llm.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化会话记录失败: %w", err)
	}
	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.maxEntries), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入会话记录失败: %w", err)
	}
	return nil
}

// Recent 返回会话最近的 limit 条记录。
func (s *RedisStore) Recent(ctx context.Context, sessionID string, limit int) ([]llm.HistoryEntry, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	values, err := s.client.LRange(ctx, s.key(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取会话记录失败: %w", err)
	}
	entries := make([]llm.HistoryEntry, 0, len(values))
	for _, value := range values {
		var entry llm.HistoryEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			// 跳过坏记录而不是让整个会话不可用。
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear 清空会话记忆。
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("清空会话记录失败: %w", err)
	}
	return nil
}

// Close 断开 Redis 连接。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
