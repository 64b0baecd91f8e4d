package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/sensorpb"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Sessions interface {
	IssueAccessToken(ctx context.Context, userName, password string) (string, *models.Account, error)
	PrincipalFromAccessToken(ctx context.Context, token string) (*models.Account, error)
}

type Detections interface {
	Predict(ctx context.Context, actor *models.Account, features map[string]any) (*services.PredictionResult, error)
	Simulate(n int) []map[string]any
}

type GRPCServer struct {
	address    string
	sessions   Sessions
	detections Detections
	logger     logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, ss Sessions, ds Detections) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		sessions:   ss,
		detections: ds,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	sensorpb.RegisterSensorServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(sensorpb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
