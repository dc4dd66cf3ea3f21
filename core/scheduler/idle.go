package scheduler

import (
	"sync"
	"time"
)

// DefaultFallbackDelay is used by DelayIdler when Delay is not positive.
const DefaultFallbackDelay = 50 * time.Millisecond

// Idler schedules fn for the next idle opportunity. The returned function
// cancels fn if it has not started yet.
type Idler interface {
	Schedule(fn func()) (cancel func())
}

// DelayIdler runs callbacks after a fixed delay.
type DelayIdler struct {
	Delay time.Duration
}

func (d DelayIdler) Schedule(fn func()) func() {
	delay := d.Delay
	if delay <= 0 {
		delay = DefaultFallbackDelay
	}
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// ActivityIdler considers the process idle when no interactive operation is
// active. Interactive callers bracket their work with Begin and the returned
// end function. Callbacks parked while busy run as soon as activity drops to
// zero, or after MaxWait when it is positive. Delay postpones callbacks
// scheduled while already idle.
type ActivityIdler struct {
	MaxWait time.Duration
	Delay   time.Duration

	mu     sync.Mutex
	active int
	nextID uint64
	parked map[uint64]*parkedCall
}

type parkedCall struct {
	fn    func()
	timer *time.Timer
}

// NewActivityIdler returns an idler whose parked callbacks wait at most maxWait.
func NewActivityIdler(maxWait time.Duration) *ActivityIdler {
	return &ActivityIdler{MaxWait: maxWait}
}

// Begin marks the start of interactive work. The returned function is
// idempotent.
func (a *ActivityIdler) Begin() (end func()) {
	a.mu.Lock()
	a.active++
	a.mu.Unlock()
	var once sync.Once
	return func() { once.Do(a.end) }
}

// Active returns the number of interactive operations in progress.
func (a *ActivityIdler) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *ActivityIdler) end() {
	a.mu.Lock()
	a.active--
	if a.active > 0 {
		a.mu.Unlock()
		return
	}
	ready := make([]func(), 0, len(a.parked))
	for id, pc := range a.parked {
		if pc.timer != nil {
			pc.timer.Stop()
		}
		ready = append(ready, pc.fn)
		delete(a.parked, id)
	}
	a.mu.Unlock()
	for _, fn := range ready {
		go fn()
	}
}

func (a *ActivityIdler) Schedule(fn func()) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == 0 {
		t := time.AfterFunc(a.Delay, fn)
		return func() { t.Stop() }
	}
	if a.parked == nil {
		a.parked = make(map[uint64]*parkedCall)
	}
	a.nextID++
	id := a.nextID
	pc := &parkedCall{fn: fn}
	if a.MaxWait > 0 {
		pc.timer = time.AfterFunc(a.MaxWait, func() {
			if a.unpark(id) {
				fn()
			}
		})
	}
	a.parked[id] = pc
	return func() {
		if a.unpark(id) && pc.timer != nil {
			pc.timer.Stop()
		}
	}
}

// unpark removes the callback and reports whether the caller now owns it.
func (a *ActivityIdler) unpark(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.parked[id]; !ok {
		return false
	}
	delete(a.parked, id)
	return true
}
