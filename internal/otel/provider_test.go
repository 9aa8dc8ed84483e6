package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "fairing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log writer")
}

func TestNew_LogWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "fairing", BatchTimeout: time.Second, LogWriter: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.True(t, p.Enabled())
	assert.NotNil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
}

func TestNew_MetricWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, MetricWriter: &buf, BatchTimeout: time.Hour})
	require.NoError(t, err)

	counter, err := p.Meter("test").Int64Counter("fairing.rebuilds")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "fairing.rebuilds")
	assert.Nil(t, p.LoggerProvider())
}
