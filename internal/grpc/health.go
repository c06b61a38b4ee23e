package grpc

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	grpcServer "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RefreshService имя сервиса в health-проверке, отражающее итог последнего обновления курсов
const RefreshService = "rates.refresh"

// HealthServer gRPC сервер проверки состояния процесса обновления курсов
type HealthServer struct {
	server *grpcServer.Server
	health *health.Server
	logger *logrus.Logger
}

// NewHealthServer создает сервер. До первого прогона обновление считается исправным.
func NewHealthServer(logger *logrus.Logger) *HealthServer {
	server := grpcServer.NewServer(
		grpcServer.UnaryInterceptor(loggingInterceptor(logger)),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(RefreshService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)

	return &HealthServer{
		server: server,
		health: hs,
		logger: logger,
	}
}

// ReportRefresh переключает статус RefreshService по итогу прогона
func (h *HealthServer) ReportRefresh(err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(RefreshService, status)
}

// Serve блокирует до остановки сервера
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Infof("gRPC health server is listening on %s", lis.Addr())
	return h.server.Serve(lis)
}

// GracefulStop переводит все сервисы в NOT_SERVING и останавливает сервер
func (h *HealthServer) GracefulStop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

// loggingInterceptor создает interceptor для логирования gRPC запросов
func loggingInterceptor(log *logrus.Logger) grpcServer.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpcServer.UnaryServerInfo,
		handler grpcServer.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		duration := time.Since(start)
		if err != nil {
			log.Errorf("gRPC method: %s, duration: %v, error: %v", info.FullMethod, duration, err)
		} else {
			log.Debugf("gRPC method: %s, duration: %v, status: success", info.FullMethod, duration)
		}

		return resp, err
	}
}
