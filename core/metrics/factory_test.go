package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lazyload/core/factory"
	metrics "github.com/kilianp07/lazyload/core/metrics"
	_ "github.com/kilianp07/lazyload/infra/metrics"
)

func TestNewMetricsSinkDefaultsToNop(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)
}

func TestNewMetricsSinkBuiltins(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus"}})
	require.NoError(t, err)
	_, queue := s.(metrics.QueueRecorder)
	_, retry := s.(metrics.RetryRecorder)
	assert.True(t, queue && retry, "prometheus sink records every event kind")

	// a second instance reuses the collectors already registered
	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus"}})
	require.NoError(t, err)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}})
	assert.ErrorIs(t, err, factory.ErrUnknownType)
}

func TestNewMetricsSinkFansOut(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "expected MultiSink, got %T", s)
	assert.Len(t, m.Sinks, 2)
}
