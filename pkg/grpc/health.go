// Package grpc exposes the standard gRPC health service and server
// reflection for this service. Dependency checks drive the reported status.
package grpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

type HealthServer struct {
	config  *config.Config
	logger  *zap.Logger
	checks  map[string]Check
	health  *health.Server
	srv     *grpc.Server
	timeout time.Duration
}

func NewHealthServer(cfg *config.Config, checks map[string]Check, logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		config:  cfg,
		logger:  logger.Named("health"),
		checks:  checks,
		health:  hs,
		srv:     srv,
		timeout: 2 * time.Second,
	}
}

// Start listens on grpc.port and serves until Stop.
func (s *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("gRPC health server started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Probe runs every check and publishes the aggregate status for both the
// empty service name and server.name. The result maps failing checks to
// their errors.
func (s *HealthServer) Probe(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	failed := make(map[string]error)
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			failed[name] = err
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if len(failed) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		for name, err := range failed {
			s.logger.Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.config.Server.Name, status)
	return failed
}

// Run probes on every tick until ctx ends.
func (s *HealthServer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Probe(ctx)
	for {
		select {
		case <-ticker.C:
			s.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop reports NOT_SERVING to watchers and drains open RPCs.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
