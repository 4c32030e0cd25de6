// file: pkg/streamrpc/scheduler.go
package streamrpc

// Scheduler decides how a dispatched request's handler runs relative to the
// caller. GoScheduler, the default, always spawns a new goroutine: this is
// the engine's guaranteed yield point, ensuring a slow or misbehaving
// target never blocks the read loop that feeds it.
type Scheduler interface {
	Schedule(func())
}

// GoScheduler runs every scheduled function on its own goroutine.
type GoScheduler struct{}

// Schedule implements Scheduler.
func (GoScheduler) Schedule(fn func()) { go fn() }
