package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := LoadFromEnv()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "heapquery", cfg.ServiceName)
	assert.Equal(t, "grpc", cfg.Protocol)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "heapquery-ci")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer tok,env=ci")

	cfg := LoadFromEnv()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "heapquery-ci", cfg.ServiceName)
	assert.Equal(t, "Bearer tok", cfg.Headers["Authorization"])
	assert.Equal(t, "ci", cfg.Headers["env"])
}

func TestParseKeyValuePairs(t *testing.T) {
	assert.Empty(t, parseKeyValuePairs(""))
	assert.Equal(t, map[string]string{"a": "1"}, parseKeyValuePairs("a=1"))
	assert.Equal(t, map[string]string{"a": "b=c"}, parseKeyValuePairs("a=b=c"))
	assert.Empty(t, parseKeyValuePairs("=nokey,novalue"))
}

func TestCreateSampler(t *testing.T) {
	always := createSampler(&Config{})
	assert.Equal(t, trace.AlwaysSample().Description(), always.Description())

	never := createSampler(&Config{Sampler: "always_off"})
	assert.Equal(t, trace.NeverSample().Description(), never.Description())

	ratio := createSampler(&Config{Sampler: "traceidratio", SamplerArg: "0.25"})
	assert.Contains(t, ratio.Description(), "0.25")
}

func TestParseRatio(t *testing.T) {
	assert.Equal(t, 1.0, parseRatio(""))
	assert.Equal(t, 0.5, parseRatio("0.5"))
	assert.Equal(t, 1.0, parseRatio("2.0"))
	assert.Equal(t, 1.0, parseRatio("bogus"))
}

func TestInit_Disabled(t *testing.T) {
	// OTEL_ENABLED unset: Init must be a no-op that still returns a
	// callable shutdown function.
	shutdown, err := Init(context.Background())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
