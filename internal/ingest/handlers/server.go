// Package handlers exposes the ingestion service over HTTP, served through a
// grpc-gateway mux, next to a gRPC server carrying the standard health
// service.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "jobscraper.ingest"

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	health       *health.Server
	httpServer   *http.Server
	healthConn   *grpc.ClientConn
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	grpcServer := grpc.NewServer(grpcOpts...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		grpcServer:   grpcServer,
		health:       healthServer,
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
}

// RegisterHTTPGateway builds the HTTP mux: /healthz proxies to the gRPC
// health service and the API routes are served by h.
func (s *Server) RegisterHTTPGateway(_ context.Context, dialOpts []grpc.DialOption, h *HTTPHandler) error {
	conn, err := grpc.NewClient(s.grpcEndpoint, dialOpts...)
	if err != nil {
		return fmt.Errorf("health client: %w", err)
	}
	s.healthConn = conn

	mux := runtime.NewServeMux(
		runtime.WithHealthzEndpoint(grpc_health_v1.NewHealthClient(conn)),
	)
	if err := h.Register(mux); err != nil {
		return err
	}

	s.httpServer.Handler = mux
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		s.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	s.grpcServer.GracefulStop()
	if s.healthConn != nil {
		_ = s.healthConn.Close()
	}

	s.logger.Info("Servers stopped")
}
