package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_rate_limited_total",
	Help: "Requests rejected by the token bucket limiter.",
}, []string{"limiter"})

// RateConfig is a token bucket: Rate tokens per second up to Burst.
type RateConfig struct {
	Rate  float64
	Burst float64
}

func (c RateConfig) enabled() bool { return c.Rate > 0 && c.Burst > 0 }

// RateLimiter throttles clients with a token bucket kept in Redis, so every
// replica shares one budget per client. The distance API is read-only, so one
// bucket covers every method.
type RateLimiter struct {
	client    redis.Scripter
	prefix    string
	cfg       RateConfig
	logger    *zap.Logger
	luaScript *redis.Script
	now       func() time.Time
}

// NewRateLimiter returns nil when client is nil; a nil limiter passes every
// request through. Buckets live under "<prefix>:<client>".
func NewRateLimiter(client redis.Scripter, prefix string, cfg RateConfig, logger *zap.Logger) *RateLimiter {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "rl"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		client:    client,
		prefix:    prefix,
		cfg:       cfg,
		logger:    logger,
		luaScript: redis.NewScript(tokenBucketLua),
		now:       time.Now,
	}
}

// Middleware answers 429 with Retry-After once a client's bucket is empty.
// Redis failures are logged and answered with 500.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || !l.cfg.enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := clientIdentifier(r)
		if identifier == "" {
			identifier = "anonymous"
		}
		retryAfter, err := l.reserve(r.Context(), identifier)
		if err != nil {
			l.logger.Error("rate limit check failed", zap.String("client", identifier), zap.Error(err))
			http.Error(w, "rate limit error", http.StatusInternalServerError)
			return
		}
		if retryAfter > 0 {
			rateLimited.WithLabelValues(l.prefix).Inc()
			w.Header().Set("Retry-After", formatRetryAfter(retryAfter))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// reserve takes one token for identifier. A positive duration means the
// bucket is empty and tells how long until a token is available.
func (l *RateLimiter) reserve(ctx context.Context, identifier string) (time.Duration, error) {
	key := l.prefix + ":" + identifier
	result, err := l.luaScript.Run(ctx, l.client, []string{key}, l.now().UnixMilli(), l.cfg.Rate, l.cfg.Burst, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("token bucket %s: %w", key, err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return 0, errors.New("invalid redis response")
	}
	granted, err := toInt64(values[0])
	if err != nil {
		return 0, err
	}
	if granted == 1 {
		return 0, nil
	}
	waitSeconds, err := toFloat64(values[2])
	if err != nil {
		return 0, err
	}
	wait := time.Duration(math.Ceil(waitSeconds*1000)) * time.Millisecond
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, nil
}

func clientIdentifier(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return id
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func formatRetryAfter(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func toFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		return strconv.ParseFloat(val, 64)
	default:
		return 0, errors.New("unsupported type")
	}
}

func toInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case float64:
		return int64(val), nil
	case string:
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, err
		}
		return parsed, nil
	default:
		return 0, errors.New("unsupported type")
	}
}

const tokenBucketLua = `
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

if rate <= 0 then
  return {1, tostring(capacity), '0'}
end

local state = redis.call('HMGET', key, 'tokens', 'timestamp')
local tokens = tonumber(state[1])
local last = tonumber(state[2])

if tokens == nil then
  tokens = capacity
end
if last == nil then
  last = now_ms
end

local delta = now_ms - last
if delta < 0 then
  delta = 0
end
local refill = delta * rate / 1000
if refill > 0 then
  tokens = math.min(capacity, tokens + refill)
  last = now_ms
end

local allowed = tokens >= requested
local wait = 0
if allowed then
  tokens = tokens - requested
else
  wait = (requested - tokens) / rate
end

redis.call('HMSET', key, 'tokens', tokens, 'timestamp', last)
local ttl = math.ceil((capacity / rate) * 1000)
redis.call('PEXPIRE', key, ttl)

-- floats are returned as strings, redis truncates lua numbers to integers
if allowed then
  return {1, tostring(tokens), '0'}
else
  return {0, tostring(tokens), tostring(wait)}
end
`
