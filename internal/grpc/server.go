package grpcserver

import (
	"context"
	"net"
	"time"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/config"
	"membershipPortal/internal/logging"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer builds a gRPC server with logging and auth interceptors and
// registers the referral and health services.
func NewServer(secret string, log zerolog.Logger, rs *ReferralServer) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		newUnaryLoggingInterceptor(log),
		auth.NewUnaryAuthInterceptor(secret, healthCheckMethod),
	))

	RegisterReferralServiceServer(srv, rs)

	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ReferralServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, h)
	return srv
}

// StartGRPC starts the gRPC server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, log zerolog.Logger, rs *ReferralServer) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	// Plaintext; terminate TLS in front of the service.
	srv := NewServer(cfg.Auth.JWTSecret, log, rs)

	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc serve")
		}
	}()
	log.Info().Str("addr", lis.Addr().String()).Msg("grpc listening")

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

// newUnaryLoggingInterceptor attaches log to the request context and logs
// each call with its status code and latency.
func newUnaryLoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		l := log.With().Str("method", info.FullMethod).Logger()
		resp, err := handler(logging.WithContext(ctx, l), req)
		ev := l.Info()
		if err != nil {
			ev = l.Warn().Err(err)
		}
		ev.Str("code", status.Code(err).String()).Dur("latency", time.Since(start)).Msg("grpc call")
		return resp, err
	}
}
