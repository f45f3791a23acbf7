package grpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type ServerConfig struct {
	Address string
}

type Server struct {
	server  *grpc.Server
	health  *health.Server
	handler *Handler
	config  ServerConfig
}

func NewServer(handler *Handler, config ServerConfig) *Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(),
			RecoveryInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			StreamLoggingInterceptor(),
			StreamRecoveryInterceptor(),
		),
	)

	server.RegisterService(&ServiceDesc, handler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	reflection.Register(server)

	return &Server{
		server:  server,
		health:  healthServer,
		handler: handler,
		config:  config,
	}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
