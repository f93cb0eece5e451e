// Package cache 分析报告缓存
// 用 Redis 缓存评分报告和持股成本报告，按 (类型, 股票, 日期) 组 key；
// 未启用或 Redis 不可用时所有操作安全退化为未命中。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockinsight/logger"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// Config 缓存配置
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	PoolSize int
}

// ReportCache Redis 报告缓存
// client 为 nil 表示禁用，所有读操作返回 ErrMiss，写操作为空操作
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache 创建报告缓存
// 连接失败不阻止启动，降级为禁用状态
func NewReportCache(ctx context.Context, config Config) *ReportCache {
	if !config.Enabled {
		return &ReportCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("⚠️ Redis 连接失败，报告缓存已禁用: %v", err)
		client.Close()
		return &ReportCache{}
	}

	logger.Info("✅ 报告缓存已连接: %s", config.Addr)
	return &ReportCache{client: client, ttl: config.TTL}
}

// Enabled 缓存是否可用
func (c *ReportCache) Enabled() bool {
	return c.client != nil
}

// key 缓存键: stockinsight:<kind>:<stock>:<date>
func key(kind, stockCode, tradeDate string) string {
	return fmt.Sprintf("stockinsight:%s:%s:%s", kind, stockCode, tradeDate)
}

// Get 读取缓存的报告并反序列化到 out
func (c *ReportCache) Get(ctx context.Context, kind, stockCode, tradeDate string, out interface{}) error {
	if c.client == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, key(kind, stockCode, tradeDate)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		// Redis 故障按未命中处理，调用方直接回源计算
		logger.Warn("⚠️ 读取缓存失败: %v", err)
		return ErrMiss
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("反序列化缓存报告失败: %w", err)
	}
	return nil
}

// Set 缓存报告，带 TTL
func (c *ReportCache) Set(ctx context.Context, kind, stockCode, tradeDate string, report interface{}) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}

	if err := c.client.Set(ctx, key(kind, stockCode, tradeDate), data, c.ttl).Err(); err != nil {
		logger.Warn("⚠️ 写入缓存失败: %v", err)
	}
	return nil
}

// Invalidate 删除某只股票某日的某类报告缓存
func (c *ReportCache) Invalidate(ctx context.Context, kind, stockCode, tradeDate string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key(kind, stockCode, tradeDate)).Err()
}

// Close 关闭连接
func (c *ReportCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
