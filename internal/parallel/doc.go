// Package parallel provides the background worker pool and the hand-off
// queue used to move decoded results back to the rendering goroutine.
package parallel
