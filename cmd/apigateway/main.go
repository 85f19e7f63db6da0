package main

import (
	"context"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/airdistance/internal/auth"
	"github.com/example/airdistance/internal/config"
	ratelimitmw "github.com/example/airdistance/internal/http/middleware"
	"github.com/example/airdistance/pkg/observability"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		observability.SetupLogger("api-gateway", "info").Fatal("load config", zap.Error(err))
	}

	logger := observability.SetupLogger("api-gateway", cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "api-gateway")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	redisClient := newRedisClient(ctx, cfg.RedisAddr, logger)
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	var scripter redis.Scripter
	if redisClient != nil {
		scripter = redisClient
	}
	limiter := ratelimitmw.NewRateLimiter(scripter, "rl:gateway", ratelimitmw.RateConfig{
		Rate:  cfg.RateRPS,
		Burst: cfg.RateBurst,
	}, logger.Named("ratelimit"))
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, distance API is unauthenticated")
	}

	srv := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           newRouter(cfg.DistanceServiceURL, limiter, auth.Middleware(cfg.JWTSecret, logger.Named("auth")), http.DefaultClient),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("api gateway listening", zap.String("addr", srv.Addr), zap.String("upstream", cfg.DistanceServiceURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newRouter(upstream string, limiter *ratelimitmw.RateLimiter, authn func(http.Handler) http.Handler, client *http.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Logger, chimiddleware.Recoverer)
	r.Mount("/observability", observability.MetricsRouter())
	r.Get("/docs", swaggerHandler)
	r.Get("/docs/", swaggerHandler)
	r.Get("/docs/index.html", swaggerHandler)
	r.Get("/docs/openapi.yaml", openAPIHandler)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware, authn)
		r.Get("/api/distance/*", proxy(strings.TrimRight(upstream, "/"), client))
	})
	return r
}

func proxy(target string, client *http.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := http.NewRequestWithContext(r.Context(), r.Method, target+r.URL.Path, r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		req.Header = r.Header.Clone()
		req.Header.Del("Authorization")
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			req.Header.Set(chimiddleware.RequestIDHeader, id)
		}
		resp, err := client.Do(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		copyHeader(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}
}

func copyHeader(dst, src http.Header) {
	for k, v := range src {
		vv := make([]string, len(v))
		copy(vv, v)
		dst[k] = vv
	}
}

func newRedisClient(ctx context.Context, addr string, logger *zap.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed, rate limiting disabled", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
