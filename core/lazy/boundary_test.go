package lazy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/core/feature"
)

func handleFor(t *testing.T, l feature.Loader) *Handle {
	t.Helper()
	h, err := NewFactory(feature.NewRegistry()).Get(feature.Descriptor{Name: "charts", Load: l})
	require.NoError(t, err)
	return h
}

func stringViews() Views[string] {
	return Views[string]{
		Loading: "spinner",
		Content: func(m feature.Module) string { return "chart:" + m.(string) },
	}
}

func TestBoundaryLoadingThenResolved(t *testing.T) {
	l := &flakyLoader{val: "bars", release: make(chan struct{})}
	b := NewBoundary(handleFor(t, l.Load), stringViews())

	assert.Equal(t, BoundaryLoading, b.State())
	assert.Equal(t, "spinner", b.Render())

	close(l.release)
	out, err := b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chart:bars", out)
	assert.Equal(t, BoundaryResolved, b.State())
	assert.ErrorIs(t, b.Retry(), ErrNotErrored)
}

func TestBoundaryErrorAndRetry(t *testing.T) {
	l := &flakyLoader{failures: 1, val: "bars"}
	rec := &events.Recorder{}
	b := NewBoundary(handleFor(t, l.Load), stringViews(), WithObserver(rec))

	out, err := b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BoundaryErrored, b.State())
	assert.Contains(t, out, "charts failed to load")
	info, errored := b.Error()
	require.True(t, errored)
	assert.Equal(t, "charts", info.Feature)
	var le *feature.LoadError
	assert.ErrorAs(t, info.Err, &le)

	require.NoError(t, b.Retry())
	assert.Equal(t, 1, b.Retries())
	out, err = b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chart:bars", out)
	assert.Equal(t, BoundaryResolved, b.State())

	assert.Equal(t, 1, rec.Count(events.RetryRequested, "charts"))
	assert.Equal(t, 1, rec.Count(events.RetrySucceeded, "charts"))
}

func TestBoundaryRetryIsUnbounded(t *testing.T) {
	l := &flakyLoader{failures: 3, val: "bars"}
	b := NewBoundary(handleFor(t, l.Load), stringViews())

	for i := 0; i < 3; i++ {
		_, err := b.Await(context.Background())
		require.NoError(t, err)
		require.Equal(t, BoundaryErrored, b.State(), "attempt %d", i+1)
		require.NoError(t, b.Retry())
	}
	out, err := b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chart:bars", out)
	assert.Equal(t, 3, b.Retries())
}

func TestBoundaryCustomErrorView(t *testing.T) {
	l := &flakyLoader{failures: 1}
	views := stringViews()
	views.Error = func(info ErrorInfo) string { return "oops " + info.Feature }
	b := NewBoundary(handleFor(t, l.Load), views)

	out, err := b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "oops charts", out)
}

func TestBoundaryContainsContentPanic(t *testing.T) {
	l := &flakyLoader{val: "bars"}
	views := stringViews()
	views.Content = func(feature.Module) string { panic("bad render") }
	b := NewBoundary(handleFor(t, l.Load), views)

	_, err := b.Await(context.Background())
	require.NoError(t, err)
	info, errored := b.Error()
	require.True(t, errored)
	assert.ErrorIs(t, info.Err, ErrContentPanic)
}

func TestBoundaryDefaultContentAssertsType(t *testing.T) {
	ok := NewBoundary(handleFor(t, (&flakyLoader{val: "raw"}).Load), Views[string]{Loading: "..."})
	out, err := ok.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "raw", out)

	bad := NewBoundary(handleFor(t, (&flakyLoader{val: 42}).Load), Views[string]{Loading: "..."})
	_, err = bad.Await(context.Background())
	require.NoError(t, err)
	info, errored := bad.Error()
	require.True(t, errored)
	assert.ErrorIs(t, info.Err, ErrContentType)
}

func TestBoundaryBoundsErrorMessage(t *testing.T) {
	long := strings.Repeat("é", 500)
	h := handleFor(t, func(context.Context) (feature.Module, error) { return nil, errors.New(long) })
	b := NewBoundary(h, stringViews())

	_, err := b.Await(context.Background())
	require.NoError(t, err)
	info, _ := b.Error()
	assert.Equal(t, MaxErrorMessage, utf8.RuneCountInString(info.Message))
	assert.True(t, strings.HasSuffix(info.Message, "…"))
}

func TestBoundaryAwaitHonoursContext(t *testing.T) {
	l := &flakyLoader{val: "bars", release: make(chan struct{})}
	defer close(l.release)
	b := NewBoundary(handleFor(t, l.Load), stringViews())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out, err := b.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "spinner", out)
}

func TestBoundaryZeroErrorViewForNonString(t *testing.T) {
	h := handleFor(t, (&flakyLoader{failures: 1}).Load)
	b := NewBoundary(h, Views[int]{Loading: -1, Content: func(feature.Module) int { return 1 }})
	out, err := b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, out)
	assert.Equal(t, BoundaryErrored, b.State())
}
