package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/airdistance/internal/distance/domain"
)

const (
	msgInternalErrors = "One or more internal service errors occured."
	msgInternalError  = "Internal service error occured."
)

// DistanceCalculator is the operation the HTTP layer exposes.
type DistanceCalculator interface {
	Distance(ctx context.Context, codeA, codeB string) (float64, error)
}

// HTTP exposes the distance endpoint.
type HTTP struct {
	svc    DistanceCalculator
	logger *zap.Logger
	mws    []func(http.Handler) http.Handler
}

// NewHTTP constructs a handler. Extra middlewares wrap the API routes only.
func NewHTTP(svc DistanceCalculator, logger *zap.Logger, mws ...func(http.Handler) http.Handler) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{svc: svc, logger: logger, mws: mws}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, h.requestLogger, middleware.Recoverer)
	r.Group(func(r chi.Router) {
		r.Use(h.mws...)
		r.Get("/api/distance/{airportA}/{airportB}", h.getDistance)
	})
	return r
}

// DistanceResponse is the body of every /api/distance answer.
type DistanceResponse struct {
	IsSuccess     bool     `json:"isSuccess"`
	Result        *float64 `json:"result,omitempty"`
	ErrorMessages []string `json:"errorMessages,omitempty"`
}

func (h *HTTP) getDistance(w http.ResponseWriter, r *http.Request) {
	miles, err := h.svc.Distance(r.Context(), chi.URLParam(r, "airportA"), chi.URLParam(r, "airportB"))
	if err != nil {
		status, resp := h.errorResponse(r, err)
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, DistanceResponse{IsSuccess: true, Result: &miles})
}

func (h *HTTP) errorResponse(r *http.Request, err error) (int, DistanceResponse) {
	logger := h.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var agg *domain.AggregateError
	if errors.As(err, &agg) {
		return aggregateResponse(logger, agg)
	}

	var derr *domain.Error
	if errors.As(err, &derr) {
		resp := DistanceResponse{ErrorMessages: []string{derr.Message}}
		if derr.Kind == domain.KindInvalidCode {
			return http.StatusBadRequest, resp
		}
		return http.StatusInternalServerError, resp
	}

	logger.Error("unhandled distance error", zap.Error(err))
	return http.StatusInternalServerError, DistanceResponse{ErrorMessages: []string{msgInternalError}}
}

// aggregateResponse answers 400 when every cause is a client error and 500
// otherwise. Unexpected causes are logged and reported once, without detail.
func aggregateResponse(logger *zap.Logger, agg *domain.AggregateError) (int, DistanceResponse) {
	causes := agg.Errors()
	resp := DistanceResponse{ErrorMessages: make([]string, 0, len(causes))}
	status := http.StatusBadRequest
	unexpected := false
	for _, cause := range causes {
		var derr *domain.Error
		if !errors.As(cause, &derr) || (derr.Kind != domain.KindInvalidCode && derr.Kind != domain.KindDataRetrieval) {
			logger.Error("unexpected airport lookup error", zap.Error(cause))
			status = http.StatusInternalServerError
			if !unexpected {
				resp.ErrorMessages = append(resp.ErrorMessages, msgInternalErrors)
				unexpected = true
			}
			continue
		}
		if derr.Kind == domain.KindDataRetrieval {
			status = http.StatusInternalServerError
		}
		resp.ErrorMessages = append(resp.ErrorMessages, derr.Message)
	}
	return status, resp
}

func (h *HTTP) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
