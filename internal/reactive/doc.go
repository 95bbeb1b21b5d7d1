// Package reactive provides latest-value channels and the watchers that
// recompute derived values whenever one of their source channels changes.
//
// A Channel holds exactly one value. Writes overwrite it and wake readers
// without blocking, so a slow reader observes the most recent value and skips
// any intermediate ones. Watchers run under a Group, which cancels every
// watcher on the first error and reports when the whole set is quiescent.
package reactive
