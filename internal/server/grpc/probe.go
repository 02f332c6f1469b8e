package grpc

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const probeTimeout = 2 * time.Second

func (s *GRPCServer) probeLoop(ctx context.Context) {
	if s.probeInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe pings every dependency and publishes the combined status.
func (s *GRPCServer) probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING

	for _, d := range s.deps {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := d.Ping(pctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return healthpb.HealthCheckResponse_NOT_SERVING
			}
			s.logger.Warn(ctx, "dependency probe failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}
