// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "sboxsync"})
	require.NoError(t, err)
	require.Nil(t, provider.tp)

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	require.False(t, span.IsRecording())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_EnabledBuildsRecordingProvider(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "sboxsync",
		Endpoint:     "127.0.0.1:4317",
		SamplingRate: 1.0,
	})
	require.NoError(t, err)
	require.NotNil(t, provider.tp)
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestTracer_ReturnsNamedTracer(t *testing.T) {
	tr := Tracer("pipeline")
	require.NotNil(t, tr)
}
