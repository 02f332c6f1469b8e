// Package grpc exposes the standard gRPC health service so that
// orchestrators can probe the server without speaking WebSocket.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "mathsolver.Solve"

// Pinger is a dependency whose reachability decides SERVING vs NOT_SERVING.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GRPCServer struct {
	address       string
	deps          []Pinger
	probeInterval time.Duration
	health        *health.Server
	logger        logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, probeInterval time.Duration, deps ...Pinger) *GRPCServer {
	return &GRPCServer{
		address:       a,
		deps:          deps,
		probeInterval: probeInterval,
		health:        health.NewServer(),
		logger:        l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	// registers services
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	s.probe(ctx)
	go s.probeLoop(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
