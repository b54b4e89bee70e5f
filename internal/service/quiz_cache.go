package service

import (
	"classroom_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const quizCacheKeyPrefix = "quiz:detail:"

// QuizCache 测验详情的 Redis 读缓存。测验创建后不可变，只在删除时失效。
// 判分永远读库内权威数据，不走缓存。
type QuizCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewQuizCache(rdb *redis.Client, ttl time.Duration) *QuizCache {
	return &QuizCache{Redis: rdb, TTL: ttl}
}

func (c *QuizCache) enabled() bool {
	return c != nil && c.Redis != nil && c.TTL > 0
}

func (c *QuizCache) Get(quizID uint) (*QuizDetail, bool) {
	if !c.enabled() {
		return nil, false
	}
	val, err := c.Redis.Get(context.Background(), c.key(quizID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Log.Warn("quiz cache read failed", zap.Uint("quizId", quizID), zap.Error(err))
		return nil, false
	}
	var detail QuizDetail
	if err := json.Unmarshal([]byte(val), &detail); err != nil {
		return nil, false
	}
	return &detail, true
}

func (c *QuizCache) Set(detail *QuizDetail) {
	if !c.enabled() || detail == nil {
		return
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := c.Redis.Set(context.Background(), c.key(detail.ID), data, c.TTL).Err(); err != nil {
		logger.Log.Warn("quiz cache write failed", zap.Uint("quizId", detail.ID), zap.Error(err))
	}
}

func (c *QuizCache) Invalidate(quizID uint) {
	if !c.enabled() {
		return
	}
	c.Redis.Del(context.Background(), c.key(quizID))
}

func (c *QuizCache) key(quizID uint) string {
	return fmt.Sprintf("%s%d", quizCacheKeyPrefix, quizID)
}
