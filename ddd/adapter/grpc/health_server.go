package grpc

import (
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"media-service/pkg/logger"
)

// HealthServer gRPC 健康检查服务，供注册中心与负载均衡探活
type HealthServer struct {
	server      *grpc.Server
	health      *health.Server
	serviceName string
}

// NewHealthServer 创建并注册 grpc.health.v1 服务，初始状态为 SERVING
func NewHealthServer(serviceName string, opts ...grpc.ServerOption) *HealthServer {
	server := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return &HealthServer{
		server:      server,
		health:      hs,
		serviceName: serviceName,
	}
}

// Server 底层 gRPC 服务，便于追加注册其他服务
func (s *HealthServer) Server() *grpc.Server {
	return s.server
}

// Serve 阻塞直到服务停止，正常停止返回 nil
func (s *HealthServer) Serve(lis net.Listener) error {
	logger.Infof("gRPC server started address=%s service=%s", lis.Addr().String(), s.serviceName)
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// MarkNotServing 开始关停，探活立即返回 NOT_SERVING
func (s *HealthServer) MarkNotServing() {
	s.health.Shutdown()
}

// Shutdown 先摘除流量再优雅停止
func (s *HealthServer) Shutdown() {
	s.MarkNotServing()
	s.server.GracefulStop()
	logger.Infof("gRPC server stopped service=%s", s.serviceName)
}
