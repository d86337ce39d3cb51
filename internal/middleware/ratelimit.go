package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitAlgorithm 限流算法类型
type RateLimitAlgorithm string

const (
	// TokenBucket 令牌桶算法
	TokenBucket RateLimitAlgorithm = "token_bucket"
	// FixedWindow 固定窗口算法
	FixedWindow RateLimitAlgorithm = "fixed_window"
)

// RateLimitType 限流类型
type RateLimitType string

const (
	// RateLimitByIP 基于IP限流
	RateLimitByIP RateLimitType = "ip"
	// RateLimitByUser 基于用户限流
	RateLimitByUser RateLimitType = "user"
	// RateLimitByEndpoint 基于接口限流
	RateLimitByEndpoint RateLimitType = "endpoint"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 请求限制数
	Limit int
	// 窗口大小（秒）
	Window int
	// 限流算法
	Algorithm RateLimitAlgorithm
	// 限流类型
	Type RateLimitType
	// 自定义Key生成函数（可选）
	KeyFunc func(*gin.Context) string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error)
}

// RateLimitResult 限流结果
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	// 重置时间（Unix时间戳）
	ResetAt int64
	Limit   int
}

// RedisRateLimiter 基于Redis的限流器, shared by every API instance.
type RedisRateLimiter struct {
	redis *redis.Client
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{redis: client}
}

// Allow 检查是否允许请求通过
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error) {
	if config.Algorithm == FixedWindow {
		return r.fixedWindow(ctx, key, config)
	}
	return r.tokenBucket(ctx, key, config)
}

const tokenBucketScript = `
	local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'last_update')
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local tokens = tonumber(bucket[1]) or capacity
	local last_update = tonumber(bucket[2]) or now

	local new_tokens = math.min(capacity, tokens + (now - last_update) * rate)
	local allowed = new_tokens >= 1
	local remaining = 0
	if allowed then
		new_tokens = new_tokens - 1
		remaining = math.floor(new_tokens)
	end

	redis.call('HSET', KEYS[1], 'tokens', new_tokens, 'last_update', now)
	redis.call('EXPIRE', KEYS[1], math.ceil(capacity / rate) + 1)

	return {allowed and 1 or 0, remaining, capacity}
`

// tokenBucket 令牌桶算法实现
func (r *RedisRateLimiter) tokenBucket(ctx context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error) {
	now := time.Now().Unix()
	ratePerSecond := float64(config.Limit) / float64(config.Window)

	result, err := r.redis.Eval(ctx, tokenBucketScript, []string{"ratelimit:token:" + key},
		config.Limit,
		ratePerSecond,
		now,
	).Result()
	if err != nil {
		return nil, err
	}
	return parseScriptResult(result, now+int64(config.Window))
}

const fixedWindowScript = `
	local current = tonumber(redis.call('GET', KEYS[1]) or 0)
	local limit = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local allowed = current < limit
	local remaining = limit - current - 1
	if allowed then
		redis.call('INCR', KEYS[1])
		if current == 0 then
			redis.call('EXPIRE', KEYS[1], ttl)
		end
	else
		remaining = 0
	end

	return {allowed and 1 or 0, remaining, limit}
`

// fixedWindow 固定窗口算法实现
func (r *RedisRateLimiter) fixedWindow(ctx context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error) {
	window := time.Now().Unix() / int64(config.Window)
	windowKey := fmt.Sprintf("ratelimit:fixed:%s:%d", key, window)

	result, err := r.redis.Eval(ctx, fixedWindowScript, []string{windowKey},
		config.Limit,
		config.Window+1,
	).Result()
	if err != nil {
		return nil, err
	}
	// 下一个窗口开始
	return parseScriptResult(result, (window+1)*int64(config.Window))
}

func parseScriptResult(result interface{}, resetAt int64) (*RateLimitResult, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script result %v", result)
	}
	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	limit, _ := values[2].(int64)
	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   resetAt,
		Limit:     int(limit),
	}, nil
}

// MemoryRateLimiter keeps one token bucket per key in process memory. Both
// algorithms are served by token buckets.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewMemoryRateLimiter 创建进程内限流器
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Allow 检查是否允许请求通过
func (m *MemoryRateLimiter) Allow(_ context.Context, key string, config *RateLimitConfig) (*RateLimitResult, error) {
	bucketKey := fmt.Sprintf("%s:%d:%d", key, config.Limit, config.Window)

	m.mu.Lock()
	l, ok := m.limiters[bucketKey]
	if !ok {
		every := time.Duration(config.Window) * time.Second / time.Duration(config.Limit)
		l = rate.NewLimiter(rate.Every(every), config.Limit)
		m.limiters[bucketKey] = l
	}
	m.mu.Unlock()

	now := time.Now()
	allowed := l.AllowN(now, 1)
	remaining := int(math.Floor(l.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Unix() + int64(config.Window),
		Limit:     config.Limit,
	}, nil
}

// RateLimitGroup 限流组配置; rules are resolved per request path.
type RateLimitGroup struct {
	limiter RateLimiter
	resolve func(path string) *RateLimitConfig
	logger  *zap.Logger
}

// NewRateLimitGroup 创建限流组
func NewRateLimitGroup(limiter RateLimiter, resolve func(path string) *RateLimitConfig, logger *zap.Logger) *RateLimitGroup {
	return &RateLimitGroup{limiter: limiter, resolve: resolve, logger: logger}
}

// Middleware 返回Gin中间件函数（支持不同路径不同配置）
func (g *RateLimitGroup) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		config := g.resolve(c.Request.URL.Path)
		if config == nil || config.Limit <= 0 || config.Window <= 0 {
			c.Next()
			return
		}

		key := generateKey(c, config)
		result, err := g.limiter.Allow(c.Request.Context(), key, config)
		if err != nil {
			// Redis错误时，允许请求通过（降级策略）
			g.logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": result.ResetAt - time.Now().Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// generateKey 生成限流Key
func generateKey(c *gin.Context, config *RateLimitConfig) string {
	if config.KeyFunc != nil {
		return config.KeyFunc(c)
	}

	switch config.Type {
	case RateLimitByUser:
		userID := c.GetString(ContextUserID)
		if userID == "" {
			// 未登录用户使用IP
			return "ip:" + clientIP(c)
		}
		return "user:" + userID
	case RateLimitByEndpoint:
		return fmt.Sprintf("endpoint:%s:%s", c.Request.Method, c.Request.URL.Path)
	default:
		return "ip:" + clientIP(c)
	}
}

// clientIP 获取客户端IP
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := c.GetHeader("X-Real-Ip"); xri != "" {
		return xri
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
