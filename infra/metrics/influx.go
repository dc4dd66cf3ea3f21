package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/lazyload/core/metrics"
	"github.com/kilianp07/lazyload/infra/logger"
)

// InfluxSink writes loading events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	known    routeSet
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails, so a missing database never blocks loading.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// LimitRoutes restricts the route tag to routes.
func (s *InfluxSink) LimitRoutes(routes []string) { s.known.limit(routes) }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordLoad writes one feature_load point.
func (s *InfluxSink) RecordLoad(ev coremetrics.LoadEvent) error {
	p := write.NewPointWithMeasurement("feature_load").
		AddTag("feature", ev.Feature).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("attempt", ev.Attempt)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) RecordQueued(ev coremetrics.QueueEvent) error {
	p := write.NewPointWithMeasurement("feature_queued").
		AddTag("feature", ev.Feature).
		AddTag("route", s.known.label(ev.Route)).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordPreloadFailure(ev coremetrics.PreloadFailureEvent) error {
	p := write.NewPointWithMeasurement("feature_preload_failed").
		AddTag("feature", ev.Feature).
		AddTag("route", s.known.label(ev.Route)).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordRoute(ev coremetrics.RouteEvent) error {
	p := write.NewPointWithMeasurement("route_notified").
		AddTag("route", s.known.label(ev.Route)).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordRetry(ev coremetrics.RetryEvent) error {
	p := write.NewPointWithMeasurement("feature_retry").
		AddTag("feature", ev.Feature).
		AddField("succeeded", ev.Succeeded).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
