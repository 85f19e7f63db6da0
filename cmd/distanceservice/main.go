package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/example/airdistance/internal/config"
	"github.com/example/airdistance/internal/distance/airport"
	"github.com/example/airdistance/internal/distance/cache"
	"github.com/example/airdistance/internal/distance/domain"
	"github.com/example/airdistance/internal/distance/grpcapi"
	"github.com/example/airdistance/internal/distance/handler"
	"github.com/example/airdistance/internal/distance/service"
	ratelimitmw "github.com/example/airdistance/internal/http/middleware"
	"github.com/example/airdistance/pkg/events"
	"github.com/example/airdistance/pkg/observability"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		observability.SetupLogger("distance-service", "info").Fatal("load config", zap.Error(err))
	}

	logger := observability.SetupLogger("distance-service", cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "distance-service")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		if conn, err := nats.Connect(cfg.NATSURL, nats.Name("distanceservice")); err == nil {
			natsConn = conn
			defer conn.Drain()
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	store := buildStore(redisClient, logger)
	airports, err := buildProvider(cfg, logger)
	if err != nil {
		logger.Fatal("airport provider", zap.Error(err))
	}
	// Outlives ctx so requests still draining during shutdown can publish.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatchDone := make(chan struct{})
	var publisher domain.EventPublisher
	if natsConn != nil {
		dispatcher := events.NewDispatcher(events.NewPublisher(natsConn, cfg.NATSSubject), logger.Named("events"), events.DispatcherConfig{
			QueueSize: cfg.EventsQueueSize,
			RetryMax:  cfg.EventsRetryMax,
		})
		publisher = dispatcher
		go func() {
			defer close(dispatchDone)
			if err := dispatcher.Run(dispatchCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event dispatcher stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("NATS not configured, distance events disabled")
		close(dispatchDone)
	}

	svc := service.New(store, airports, publisher, domain.SystemClock{}, logger.Named("distance"), service.Config{
		CacheTTL:         cfg.CacheTTL,
		CacheReadFailure: cfg.CacheReadFailure,
	})

	var mws []func(http.Handler) http.Handler
	if redisClient != nil {
		limiter := ratelimitmw.NewRateLimiter(redisClient, "rl:distance", ratelimitmw.RateConfig{
			Rate:  cfg.RateRPS,
			Burst: cfg.RateBurst,
		}, logger.Named("ratelimit"))
		mws = append(mws, limiter.Middleware)
	}

	r := chi.NewRouter()
	r.Mount("/observability", observability.MetricsRouter(readyChecks(redisClient)...))
	r.Mount("/", handler.NewHTTP(svc, logger.Named("http"), mws...).Router())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("listen grpc", zap.Error(err))
		}
		grpcSrv = grpc.NewServer()
		grpcapi.RegisterDistanceServer(grpcSrv, grpcapi.NewServer(svc, logger.Named("grpc")))
		go func() {
			logger.Info("distance grpc listening", zap.String("addr", lis.Addr().String()))
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Error("grpc serve", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.Info("distance service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	stopDispatch()
	<-dispatchDone
}

func buildStore(redisClient *redis.Client, logger *zap.Logger) domain.CacheStore {
	if redisClient == nil {
		logger.Warn("REDIS_ADDR not set, using in-process cache")
		return cache.NewMemoryStore(domain.SystemClock{})
	}
	return cache.NewRedisStore(redisClient)
}

func buildProvider(cfg *config.Config, logger *zap.Logger) (domain.AirportProvider, error) {
	if cfg.UseMemoryProvider() {
		logger.Info("serving airports from the built-in data set")
		return airport.NewMemoryProvider(airport.SeedAirports()...), nil
	}
	return airport.NewClient(airport.ClientConfig{
		BaseURL: cfg.PlacesBaseURL,
		Timeout: cfg.PlacesTimeout,
	})
}

func readyChecks(redisClient *redis.Client) []func(context.Context) error {
	if redisClient == nil {
		return nil
	}
	return []func(context.Context) error{
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
}
