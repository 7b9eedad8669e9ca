package grpc

import (
	"context"

	health "google.golang.org/grpc/health/grpc_health_v1"
)

// Check reports serving while the message store answers.
func (v *Server) Check(ctx context.Context, request *health.HealthCheckRequest) (*health.HealthCheckResponse, error) {
	status := health.HealthCheckResponse_SERVING
	if raw, err := v.db.DB(); err != nil {
		status = health.HealthCheckResponse_NOT_SERVING
	} else if err := raw.PingContext(ctx); err != nil {
		status = health.HealthCheckResponse_NOT_SERVING
	}

	return &health.HealthCheckResponse{
		Status: status,
	}, nil
}
