package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{Enabled: true, Version: "test", Writer: &buf}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "assessment.generate")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "assessment.generate")
	assert.Contains(t, buf.String(), "assessgen")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(0))
	assert.Equal(t, 1.0, clamp(3))
	assert.Equal(t, 0.25, clamp(0.25))
}
