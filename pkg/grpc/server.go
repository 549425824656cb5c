// Package grpc serves the standard grpc.health.v1 service so orchestrators
// can probe the API, with reflection for grpcurl. Health follows the
// registered checks: any failing check flips the overall status to
// NOT_SERVING.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type Server struct {
	srv    *grpc.Server
	health *health.Server

	mu     sync.Mutex
	checks map[string]Check
}

// New builds the server. Each check is also exposed as its own health
// service name, e.g. "panaya.database".
func New(checks map[string]Check) *Server {
	s := &Server{health: health.NewServer(), checks: checks}
	s.srv = grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor),
		grpc.MaxRecvMsgSize(1<<20),
	)
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	return s
}

func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("grpc: panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	metrics.GRPCRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
	logger.Debug("grpc: request", "method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
	return resp, err
}

// CheckNow runs every check once and publishes the result.
func (s *Server) CheckNow(ctx context.Context) bool {
	s.mu.Lock()
	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	s.mu.Unlock()
	sort.Strings(names)

	healthy := true
	for _, n := range names {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.checks[n](cctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			st = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("grpc: health check failed", "check", n, "error", err)
		}
		s.health.SetServingStatus(n, st)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return healthy
}

// Watch re-runs the checks every interval until ctx ends.
func (s *Server) Watch(ctx context.Context, every time.Duration) {
	s.CheckNow(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.CheckNow(ctx)
		}
	}
}

// Serve blocks on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	logger.Info("grpc: serving", "addr", lis.Addr().String())
	return s.srv.Serve(lis)
}

// Listen opens the port and serves in the background.
func (s *Server) Listen(port string) (net.Listener, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on :%s: %w", port, err)
	}
	go func() {
		if err := s.Serve(lis); err != nil {
			logger.Error("grpc: serve", "error", err)
		}
	}()
	return lis, nil
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
