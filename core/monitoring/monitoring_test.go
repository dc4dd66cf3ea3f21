package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/lazyload/core/events"
)

type recordMonitor struct {
	errs []error
	tags []map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestObserverCapturesFailures(t *testing.T) {
	mon := &recordMonitor{}
	obs := Observer(mon)
	cause := errors.New("chunk 404")

	events.Emit(obs, events.Event{Kind: events.Loaded, Feature: "charts"})
	events.Emit(obs, events.Event{Kind: events.LoadFailed, Feature: "editor", Attempt: "a1", Err: cause})
	events.Emit(obs, events.Event{Kind: events.PreloadFailed, Feature: "editor", Route: "docs", Err: cause})

	if assert.Len(t, mon.errs, 2) {
		assert.Equal(t, "registry", mon.tags[0]["module"])
		assert.Equal(t, "a1", mon.tags[0]["attempt"])
		assert.Equal(t, "true", mon.tags[1]["predictive"])
		assert.Equal(t, "docs", mon.tags[1]["route"])
	}
}

func TestObserverNilMonitor(t *testing.T) {
	assert.NotPanics(t, func() {
		events.Emit(Observer(nil), events.Event{Kind: events.LoadFailed, Err: errors.New("x")})
	})
}
