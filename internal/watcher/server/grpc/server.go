package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcmw "github.com/autopeer-io/motwatch/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/pkg/log"
	"github.com/autopeer-io/motwatch/pkg/options"
)

// PollerService is the health service name that tracks poll cycle outcomes.
const PollerService = "motwatch.v1.Poller"

// Server exposes grpc.health.v1. It also listens to the coordinator so the
// poller service status follows cycle outcomes.
type Server struct {
	server  *grpc.Server
	health  *health.Server
	options *options.GrpcOptions
}

var _ poller.Listener = (*Server)(nil)

func NewServer(opts *options.GrpcOptions) *Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcmw.UnaryServerLogging(log.WithName("grpc"))))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	// Nothing has settled yet.
	hs.SetServingStatus(PollerService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		server:  s,
		health:  hs,
		options: opts,
	}
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve runs on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	log.Info("Starting gRPC Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		s.server.GracefulStop()
		return nil
	}
}

func (s *Server) OnSettled(context.Context, *poller.Snapshot) {
	s.health.SetServingStatus(PollerService, healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) OnAborted(context.Context, error) {
	s.health.SetServingStatus(PollerService, healthpb.HealthCheckResponse_NOT_SERVING)
}
