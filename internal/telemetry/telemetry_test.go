package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/carbontrack/carbontrack/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "carbontrack-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.False(t, provider.Enabled())
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_Shutdown_SDKProviders(t *testing.T) {
	provider := &telemetry.Provider{TracerProvider: trace.NewTracerProvider()}
	assert.True(t, provider.Enabled())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	traceID := oteltrace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	tests := []struct {
		name  string
		ratio float64
		want  trace.SamplingDecision
	}{
		{"zero records all", 0, trace.RecordAndSample},
		{"one records all", 1, trace.RecordAndSample},
		{"negative records all", -0.5, trace.RecordAndSample},
		{"tiny ratio drops high trace IDs", 0.0001, trace.Drop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := telemetry.Sampler(tt.ratio).ShouldSample(trace.SamplingParameters{
				ParentContext: context.Background(),
				TraceID:       traceID,
				Name:          "GET /",
			})
			assert.Equal(t, tt.want, result.Decision)
		})
	}
}
