package telemetry

import (
	"context"
	"testing"

	"github.com/BaSui01/agentlink/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(config.TelemetryConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)

	// Noop providers shut down cleanly.
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdown_NilReceiver(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTracer(t *testing.T) {
	// Without Init the global provider is noop but the tracer is
	// still usable.
	tr := Tracer()
	require.NotNil(t, tr)

	_, span := tr.Start(context.Background(), "test")
	span.End()
}
