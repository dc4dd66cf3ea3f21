// Package scheduler performs predictive feature loads without competing with
// interactive work.
//
// A Scheduler owns a FIFO preload queue. Route changes reported through
// NotifyRoute are translated into predicted feature names and enqueued. The
// queue is drained one feature per idle opportunity, as signalled by an Idler:
//
//   - DelayIdler fires after a fixed delay and is the fallback when nothing
//     better is available.
//   - ActivityIdler fires once no interactive load is in progress, or after
//     MaxWait at the latest.
//
// Predictive failures are logged and reported as PreloadFailed events; they
// never reach the caller of NotifyRoute. Interactive code does not go through
// the scheduler at all: it requests features from the registry directly.
package scheduler
