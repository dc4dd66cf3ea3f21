package metrics

import (
	"errors"
	"testing"
)

// loadOnlySink implements MetricsSink but none of the optional recorders.
type loadOnlySink struct {
	loads int
	err   error
}

func (s *loadOnlySink) RecordLoad(LoadEvent) error {
	s.loads++
	return s.err
}

type fullSink struct {
	NopSink
	loads, queued, retries int
}

func (s *fullSink) RecordLoad(LoadEvent) error   { s.loads++; return nil }
func (s *fullSink) RecordQueued(QueueEvent) error { s.queued++; return nil }
func (s *fullSink) RecordRetry(RetryEvent) error  { s.retries++; return nil }

// TestMultiSink ensures events are forwarded to every sink that supports them.
func TestMultiSink(t *testing.T) {
	s1 := &loadOnlySink{}
	s2 := &fullSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordLoad(LoadEvent{Feature: "charts", Success: true}); err != nil {
		t.Fatalf("record load: %v", err)
	}
	if err := m.RecordQueued(QueueEvent{Feature: "charts"}); err != nil {
		t.Fatalf("record queued: %v", err)
	}
	if err := m.RecordRetry(RetryEvent{Feature: "charts"}); err != nil {
		t.Fatalf("record retry: %v", err)
	}
	if s1.loads != 1 || s2.loads != 1 {
		t.Fatalf("loads not forwarded: %d %d", s1.loads, s2.loads)
	}
	if s2.queued != 1 || s2.retries != 1 {
		t.Fatalf("optional events not forwarded")
	}
}

// TestMultiSinkJoinsErrors checks that one failing sink does not hide others.
func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	s1 := &loadOnlySink{err: boom}
	s2 := &loadOnlySink{}
	err := NewMultiSink(s1, s2).RecordLoad(LoadEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.loads != 1 {
		t.Fatal("second sink skipped after error")
	}
}
