package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// newHealthServer returns a gRPC server exposing only the standard health
// service, with the overall status and both connect services SERVING.
func newHealthServer() (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	for _, svc := range []string{"", EvalServiceName, GraphServiceName} {
		hs.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return gs, hs
}
