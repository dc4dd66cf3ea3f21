// Package events defines the structured feature-loading events emitted by the
// registry, the scheduler and lazy boundaries.
//
// Available event kinds:
//   - Queued: a feature entered the preload queue
//   - LoadStarted: a loader was invoked
//   - Loaded / LoadFailed: a loader finished
//   - PreloadFailed: a predictive load failed and was swallowed
//   - RouteNotified: the navigation layer reported a route change
//   - RetryRequested / RetrySucceeded: user-triggered retry after a failure
//
// Observers never influence loading; they are purely informational.
package events
