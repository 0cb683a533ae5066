package redisdb

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"aura/internal/domain/rag"
	applog "aura/internal/platform/log"
)

const answerKeyPrefix = "ka:query:"

// AnswerCache 问答结果 Redis 缓存，实现 rag.AnswerCacheStore。
// 缓存是优化而非正确性要求：读写故障记日志后按 miss/no-op 处理。
type AnswerCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewAnswerCache 创建答案缓存
func NewAnswerCache(rdb *redis.Client, ttlSeconds int) *AnswerCache {
	ttl := time.Hour
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &AnswerCache{
		redis: rdb,
		ttl:   ttl,
	}
}

// Get 从缓存获取答案（故障视为 miss）
func (c *AnswerCache) Get(ctx context.Context, tenantID, question string) (*rag.AskResult, bool) {
	key := answerCacheKey(tenantID, question)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		applog.Warn("[Cache] Read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}

	var result rag.AskResult
	if err := json.Unmarshal(data, &result); err != nil {
		applog.Warn("[Cache] Failed to unmarshal cached answer", "key", key, "error", err)
		return nil, false
	}

	applog.Debug("[Cache] Hit", "key", key)
	return &result, true
}

// Set 写入答案（故障记日志后吞掉）
func (c *AnswerCache) Set(ctx context.Context, tenantID, question string, result *rag.AskResult) {
	key := answerCacheKey(tenantID, question)
	data, err := json.Marshal(result)
	if err != nil {
		applog.Warn("[Cache] Failed to marshal answer", "key", key, "error", err)
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		applog.Warn("[Cache] Write failed", "key", key, "error", err)
	}
}

// InvalidateTenant 清除该租户全部缓存条目（SCAN + DEL）
func (c *AnswerCache) InvalidateTenant(ctx context.Context, tenantID string) {
	pattern := answerKeyPrefix + tenantID + ":*"
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		applog.Warn("[Cache] Scan failed during invalidation", "tenant_id", tenantID, "error", err)
		return
	}

	if len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			applog.Warn("[Cache] Delete failed during invalidation", "tenant_id", tenantID, "error", err)
			return
		}
	}
	applog.Info("[Cache] Tenant invalidated", "tenant_id", tenantID, "keys_deleted", len(keys))
}

// Ping 健康检查
func (c *AnswerCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// answerCacheKey 缓存 key = 前缀 + 租户 + 归一化问题哈希前缀。
// 相同 (tenant, question) 永远得到同一 key；
// 不同租户即使问题相同也不会碰撞。
func answerCacheKey(tenantID, question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s%s:%x", answerKeyPrefix, tenantID, hash[:8])
}
