package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/internal/eventbus"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal", "events.jsonl")
	j, err := Open(Config{Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestAppendAndQuery(t *testing.T) {
	j, _ := openTemp(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.Append(events.Event{Kind: events.Loaded, Feature: "charts", Duration: 40 * time.Millisecond, Time: base}))
	require.NoError(t, j.Append(events.Event{Kind: events.LoadFailed, Feature: "forms", Err: errors.New("boom"), Time: base.Add(time.Second)}))
	require.NoError(t, j.Append(events.Event{Kind: events.RouteNotified, Route: "dashboard", Time: base.Add(2 * time.Second)}))

	all, err := j.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, events.Loaded, all[0].Kind)
	assert.Equal(t, 40*time.Millisecond, all[0].Duration)
	assert.Equal(t, "boom", all[1].Error)

	forms, err := j.Query(context.Background(), Query{Feature: "forms"})
	require.NoError(t, err)
	require.Len(t, forms, 1)

	kinds, err := j.Query(context.Background(), Query{Kinds: []events.Kind{events.RouteNotified}})
	require.NoError(t, err)
	require.Len(t, kinds, 1)
	assert.Equal(t, "dashboard", kinds[0].Route)

	window, err := j.Query(context.Background(), Query{Start: base.Add(500 * time.Millisecond), End: base.Add(1500 * time.Millisecond)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "forms", window[0].Feature)
}

func TestReadIncludesBackupsAndSkipsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	backup := filepath.Join(dir, "events-2024-05-01T10-00-00.000.jsonl")
	require.NoError(t, os.WriteFile(backup, []byte(`{"kind":"feature_loaded","feature":"old","time":"2024-05-01T10:00:00Z"}`+"\nnot json\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"feature_loaded","feature":"new","time":"2024-05-01T11:00:00Z"}`+"\n"), 0o600))

	evs, err := Read(context.Background(), path, Query{})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "old", evs[0].Feature)
	assert.Equal(t, "new", evs[1].Feature)
}

func TestFollowBus(t *testing.T) {
	j, _ := openTemp(t)
	bus := eventbus.NewTyped[events.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	done := j.Follow(ctx, bus)

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	bus.Publish(events.Event{Kind: events.Queued, Feature: "charts", Time: time.Now()})

	assert.Eventually(t, func() bool {
		evs, err := j.Query(context.Background(), Query{Feature: "charts"})
		return err == nil && len(evs) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestSummarize(t *testing.T) {
	evs := []events.Event{
		{Kind: events.Loaded, Feature: "charts", Duration: 10 * time.Millisecond},
		{Kind: events.Loaded, Feature: "charts", Duration: 30 * time.Millisecond},
		{Kind: events.LoadFailed, Feature: "charts"},
		{Kind: events.PreloadFailed, Feature: "charts"},
		{Kind: events.RetryRequested, Feature: "forms"},
		{Kind: events.RouteNotified, Route: "dashboard"},
	}
	stats := Summarize(evs)
	require.Len(t, stats, 2)

	charts := stats[0]
	assert.Equal(t, "charts", charts.Feature)
	assert.Equal(t, 3, charts.Loads)
	assert.Equal(t, 1, charts.Failures)
	assert.Equal(t, 1, charts.Preloads)
	assert.Equal(t, 20*time.Millisecond, charts.Mean)
	assert.InDelta(t, 1.0/3, charts.FailRatio, 1e-9)

	forms := stats[1]
	assert.Equal(t, "forms", forms.Feature)
	assert.Equal(t, 1, forms.Retries)
	assert.Zero(t, forms.Loads)
}
