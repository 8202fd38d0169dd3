package utilities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestRegisterHealthServer(t *testing.T) {
	healthServer := RegisterHealthServer(grpc.NewServer(), "auth-service")

	for _, service := range []string{"", "auth-service"} {
		resp, err := healthServer.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	}

	healthServer.Shutdown()
	resp, err := healthServer.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: "auth-service"})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
