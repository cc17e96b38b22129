package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"TruthMeterService/pkg/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// StoreHealth сообщает о доступности хранилища для grpc health
type StoreHealth interface {
	IsDatabaseHealthy(ctx context.Context) bool
}

// Server представляет собой gRPC сервер
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	checker    StoreHealth
	logger     *zap.Logger
	port       int
}

// NewServer создает gRPC сервер с перехватчиками восстановления, трассировки
// и метрик, сервисом health и reflection
func NewServer(handler TruthMeterServer, checker StoreHealth, logger *zap.Logger, port int) *Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			server.RecoveryUnaryInterceptor(logger),
			server.TracingUnaryInterceptor(logger),
			server.MetricsUnaryInterceptor(),
		),
	)

	RegisterTruthMeterServer(grpcServer, handler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Включаем reflection для удобства отладки через grpcurl
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		checker:    checker,
		logger:     logger,
		port:       port,
	}
}

// Run слушает порт и обслуживает запросы до Stop
func (s *Server) Run() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.logger.Error("Failed to listen", zap.Error(err), zap.Int("port", s.port))
		return err
	}

	s.logger.Info("Starting gRPC server", zap.Int("port", s.port))
	return s.Serve(lis)
}

// Serve обслуживает запросы на готовом listener
func (s *Server) Serve(lis net.Listener) error {
	s.SetServing(true)
	return s.grpcServer.Serve(lis)
}

// SetServing выставляет статус grpc health для TruthMeter и сервера в целом
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !serving {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// MonitorHealth периодически переводит health в NOT_SERVING, пока хранилище недоступно
func (s *Server) MonitorHealth(ctx context.Context, interval time.Duration) {
	if s.checker == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SetServing(s.checker.IsDatabaseHealthy(ctx))
		case <-ctx.Done():
			return
		}
	}
}

// Stop останавливает gRPC сервер, дожидаясь текущих запросов до отмены ctx
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping gRPC server")
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpcServer.Stop()
		return ctx.Err()
	}
}
