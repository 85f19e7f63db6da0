package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/example/airdistance/internal/distance/cache"
	"github.com/example/airdistance/internal/distance/domain"
	"github.com/example/airdistance/internal/distance/geo"
)

// CacheReadFailurePolicy decides what a cache backend error during lookup means.
type CacheReadFailurePolicy int

const (
	// CacheReadFailFast fails the call with a CacheUnavailable error.
	CacheReadFailFast CacheReadFailurePolicy = iota
	// CacheReadAsMiss logs the failure and continues as if the key were absent.
	CacheReadAsMiss
)

// Config tunes the orchestrator.
type Config struct {
	CacheTTL         time.Duration
	CacheReadFailure CacheReadFailurePolicy
}

// Service computes airport distances with a cache-aside flow.
type Service struct {
	cache    domain.CacheStore
	airports domain.AirportProvider
	events   domain.EventPublisher
	clock    domain.Clock
	logger   *zap.Logger
	tracer   trace.Tracer
	cfg      Config
}

// New constructs a Service. events, clock and logger may be nil.
func New(store domain.CacheStore, airports domain.AirportProvider, events domain.EventPublisher, clock domain.Clock, logger *zap.Logger, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = domain.CacheTTL
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:    store,
		airports: airports,
		events:   events,
		clock:    clock,
		logger:   logger,
		tracer:   otel.Tracer("airdistance.service"),
		cfg:      cfg,
	}
}

// Distance returns the great-circle distance in miles between two airports.
//
// Errors are *domain.Error for validation and cache failures and
// *domain.AggregateError when either airport lookup fails.
func (s *Service) Distance(ctx context.Context, codeA, codeB string) (miles float64, err error) {
	ctx, span := s.tracer.Start(ctx, "distance.calculate")
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(resultLabel(err)).Observe(time.Since(start).Seconds())
		endSpan(span, err)
	}()

	codeA = domain.NormalizeCode(codeA)
	codeB = domain.NormalizeCode(codeB)
	if !domain.ValidCode(codeA) {
		return 0, domain.InvalidCodeError(codeA)
	}
	if !domain.ValidCode(codeB) {
		return 0, domain.InvalidCodeError(codeB)
	}

	codeA, codeB = domain.CanonicalPair(codeA, codeB)
	key := domain.CacheKey(codeA, codeB)
	span.SetAttributes(attribute.String("airport.a", codeA), attribute.String("airport.b", codeB))

	cached, hit, err := s.lookup(ctx, key)
	if err != nil {
		return 0, err
	}
	if hit {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	airportA, airportB, err := s.fetchPair(ctx, codeA, codeB)
	if err != nil {
		return 0, err
	}

	miles = geo.Miles(*airportA.Location, *airportB.Location)

	if err := s.cache.Set(ctx, key, cache.FormatDistance(miles), s.cfg.CacheTTL); err != nil {
		s.logger.Error("cache write failed", zap.String("key", key), zap.Error(err))
		return 0, domain.CacheError(err)
	}

	s.publish(ctx, codeA, codeB, miles)
	return miles, nil
}

func (s *Service) lookup(ctx context.Context, key string) (float64, bool, error) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		return 0, false, s.onCacheReadError(key, err)
	}
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return 0, false, nil
	}
	miles, ok := cache.ParseDistance(raw)
	if !ok {
		s.logger.Warn("unparseable cache entry", zap.String("key", key), zap.String("value", raw))
		cacheLookups.WithLabelValues("miss").Inc()
		return 0, false, nil
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return miles, true, nil
}

// onCacheReadError is the single place deciding whether a failed lookup ends
// the call. A nil return continues on the miss path.
func (s *Service) onCacheReadError(key string, err error) error {
	s.logger.Error("cache read failed", zap.String("key", key), zap.Error(err))
	cacheLookups.WithLabelValues("error").Inc()
	if s.cfg.CacheReadFailure == CacheReadAsMiss {
		return nil
	}
	return domain.CacheError(err)
}

// fetchPair loads both airports concurrently and waits for both. Every
// failure is kept, in slot order.
func (s *Service) fetchPair(ctx context.Context, codeA, codeB string) (*domain.AirportRecord, *domain.AirportRecord, error) {
	codes := [2]string{codeA, codeB}
	var (
		records [2]*domain.AirportRecord
		errs    [2]error
		wg      sync.WaitGroup
	)
	for i := range codes {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			records[slot], errs[slot] = s.fetchAirport(ctx, codes[slot])
		}(i)
	}
	wg.Wait()

	if agg := domain.NewAggregateError(multierr.Combine(errs[0], errs[1])); agg != nil {
		return nil, nil, agg
	}
	return records[0], records[1], nil
}

func (s *Service) fetchAirport(ctx context.Context, code string) (record *domain.AirportRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "airport.fetch", trace.WithAttributes(attribute.String("airport.code", code)))
	start := time.Now()
	defer func() {
		airportFetchDuration.WithLabelValues(resultLabel(err)).Observe(time.Since(start).Seconds())
		endSpan(span, err)
	}()

	record, err = s.airports.Fetch(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrAirportNotFound) {
			return nil, domain.AirportNotFoundError(code, err)
		}
		s.logger.Error("airport fetch failed", zap.String("code", code), zap.Error(err))
		return nil, domain.RetrievalError(code, err)
	}
	if record == nil {
		return nil, domain.EmptyResponseError(code)
	}
	if record.Location == nil || !record.Location.Valid() {
		return nil, domain.InvalidLocationError(code)
	}
	return record, nil
}

func (s *Service) publish(ctx context.Context, from, to string, miles float64) {
	if s.events == nil {
		return
	}
	event := domain.DistanceEvent{
		ID:           uuid.New(),
		Type:         domain.EventDistanceCalculated,
		From:         from,
		To:           to,
		Miles:        miles,
		CalculatedAt: s.clock.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish distance event", zap.Error(err))
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var agg *domain.AggregateError
	if errors.As(err, &agg) {
		return "aggregate"
	}
	if kind := domain.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
