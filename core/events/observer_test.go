package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineSkipsNil(t *testing.T) {
	assert.IsType(t, Nop{}, Combine(nil, nil))

	rec := &Recorder{}
	assert.Same(t, rec, Combine(nil, rec))

	other := &Recorder{}
	o := Combine(rec, nil, other)
	Emit(o, Event{Kind: Loaded, Feature: "charts"})
	assert.Equal(t, 1, rec.Count(Loaded, "charts"))
	assert.Equal(t, 1, other.Count(Loaded, ""))
}

func TestEmitStampsTimeAndError(t *testing.T) {
	rec := &Recorder{}
	Emit(rec, Event{Kind: LoadFailed, Feature: "auth", Err: errors.New("boom")})
	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.False(t, evs[0].Time.IsZero())
	assert.Equal(t, "boom", evs[0].Error)
}

func TestKindTextRoundTrip(t *testing.T) {
	ev := Event{Kind: RetrySucceeded, Feature: "forms", Duration: time.Second, Time: time.Unix(0, 0).UTC()}
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"feature_retry_succeeded"`)

	var back Event
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, RetrySucceeded, back.Kind)

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("nope")))
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestRecorderKinds(t *testing.T) {
	rec := &Recorder{}
	Emit(rec, Event{Kind: Queued, Feature: "charts"})
	Emit(rec, Event{Kind: LoadStarted, Feature: "charts"})
	Emit(rec, Event{Kind: LoadStarted, Feature: "auth"})
	Emit(rec, Event{Kind: Loaded, Feature: "charts"})
	assert.Equal(t, []Kind{Queued, LoadStarted, Loaded}, rec.Kinds("charts"))
}

func TestEventFields(t *testing.T) {
	f := Event{Kind: PreloadFailed, Feature: "charts", Route: "dashboard", Err: errors.New("x")}.Fields()
	assert.Equal(t, "feature_preload_failed", f["event"])
	assert.Equal(t, "dashboard", f["route"])
	assert.NotContains(t, f, "attempt")
}
