package grpcserver

import (
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/aesdsocket/internal/lifecycle"
)

// ServiceName is the service reported by the health endpoint in addition to
// the overall ("") status.
const ServiceName = "aesdsocket"

// statusFor maps a lifecycle phase to a health status.
func statusFor(p lifecycle.Phase) healthpb.HealthCheckResponse_ServingStatus {
	if p == lifecycle.PhaseListening {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

func setStatus(h *health.Server, p lifecycle.Phase) {
	st := statusFor(p)
	h.SetServingStatus("", st)
	h.SetServingStatus(ServiceName, st)
}
