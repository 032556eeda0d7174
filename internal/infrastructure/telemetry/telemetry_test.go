package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "fundledger-test",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestNewResourceDefaultsServiceName(t *testing.T) {
	res := newResource(Config{Version: "1.2.3"})

	var name, version string
	for _, kv := range res.Attributes() {
		switch kv.Key {
		case semconv.ServiceNameKey:
			name = kv.Value.AsString()
		case semconv.ServiceVersionKey:
			version = kv.Value.AsString()
		}
	}

	assert.Equal(t, "fundledger", name)
	assert.Equal(t, "1.2.3", version)
}
