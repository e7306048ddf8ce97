package grpc

import (
	googlegrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	storyquestv1 "github.com/eslsoft/storyquest/api/storyquest/v1"
)

// RegisterHealth exposes the standard health service and server reflection.
// Both storyquest services report SERVING once the process is up.
func RegisterHealth(srv *googlegrpc.Server) *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, name := range []string{storyquestv1.TaskServiceName, storyquestv1.ChallengeServiceName} {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return hs
}
