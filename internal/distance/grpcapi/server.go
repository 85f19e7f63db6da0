package grpcapi

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/airdistance/internal/distance/domain"
)

// Calculator is the operation served over gRPC.
type Calculator interface {
	Distance(ctx context.Context, codeA, codeB string) (float64, error)
}

// Server implements the DistanceServer interface.
type Server struct {
	calc   Calculator
	logger *zap.Logger
}

// NewServer constructs a server.
func NewServer(calc Calculator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{calc: calc, logger: logger}
}

// Distance answers a single distance request.
func (s *Server) Distance(ctx context.Context, req *DistanceRequest) (*DistanceReply, error) {
	miles, err := s.calc.Distance(ctx, req.From, req.To)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &DistanceReply{Miles: miles}, nil
}

func (s *Server) toStatus(err error) error {
	var agg *domain.AggregateError
	if errors.As(err, &agg) {
		var retrieval, unexpected bool
		msgs := make([]string, 0, len(agg.Errors()))
		for _, cause := range agg.Errors() {
			switch domain.KindOf(cause) {
			case domain.KindInvalidCode:
				msgs = append(msgs, cause.Error())
			case domain.KindDataRetrieval:
				retrieval = true
				msgs = append(msgs, cause.Error())
			default:
				s.logger.Error("unexpected airport lookup error", zap.Error(cause))
				unexpected = true
				msgs = append(msgs, "internal error")
			}
		}
		code := codes.InvalidArgument
		switch {
		case unexpected:
			code = codes.Internal
		case retrieval:
			code = codes.Unavailable
		}
		return status.Error(code, strings.Join(msgs, "; "))
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidCode:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.KindDataRetrieval, domain.KindCacheUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error("unhandled distance error", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}
