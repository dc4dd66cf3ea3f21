package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/lazyload/core/metrics"
)

func TestPromSinkRecordsLoads(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordLoad(coremetrics.LoadEvent{Feature: "charts", Success: true, Duration: 20 * time.Millisecond}))
	require.NoError(t, sink.RecordLoad(coremetrics.LoadEvent{Feature: "charts", Success: false}))
	require.NoError(t, sink.RecordQueued(coremetrics.QueueEvent{Feature: "charts", Route: "dashboard"}))
	require.NoError(t, sink.RecordPreloadFailure(coremetrics.PreloadFailureEvent{Feature: "charts"}))
	require.NoError(t, sink.RecordRoute(coremetrics.RouteEvent{Route: "dashboard"}))
	require.NoError(t, sink.RecordRetry(coremetrics.RetryEvent{Feature: "charts", Succeeded: true}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.loads.WithLabelValues("charts", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.loads.WithLabelValues("charts", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.queued.WithLabelValues("charts", "dashboard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.preload.WithLabelValues("charts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.routes.WithLabelValues("dashboard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.retries.WithLabelValues("charts", "true")))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.duration))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s1, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	s2, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s1.RecordRoute(coremetrics.RouteEvent{Route: "home"}))
	require.NoError(t, s2.RecordRoute(coremetrics.RouteEvent{Route: "home"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(s1.routes.WithLabelValues("home")))
}

func TestPromSinkLimitsRouteLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	sink.LimitRoutes([]string{"dashboard"})

	for _, r := range []string{"dashboard", "/users/1", "/users/2", "../../etc"} {
		require.NoError(t, sink.RecordRoute(coremetrics.RouteEvent{Route: r}))
	}
	require.NoError(t, sink.RecordQueued(coremetrics.QueueEvent{Feature: "charts", Route: "/users/3"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.routes.WithLabelValues("dashboard")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.routes.WithLabelValues(coremetrics.OtherRoute)))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.routes))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.queued.WithLabelValues("charts", coremetrics.OtherRoute)))
}

func TestMultiSinkForwardsRouteLimit(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	multi := coremetrics.NewMultiSink(coremetrics.NopSink{}, sink)
	multi.LimitRoutes([]string{"home"})

	require.NoError(t, multi.RecordRoute(coremetrics.RouteEvent{Route: "admin"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.routes.WithLabelValues(coremetrics.OtherRoute)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordLoad(coremetrics.LoadEvent{Feature: "forms", Success: true}))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `feature_loads_total{feature="forms",success="true"} 1`))
}
