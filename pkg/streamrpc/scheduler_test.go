// file: pkg/streamrpc/scheduler_test.go
package streamrpc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncScheduler runs scheduled functions inline, giving dispatcher tests
// deterministic ordering instead of racing a background goroutine.
type syncScheduler struct{}

func (syncScheduler) Schedule(fn func()) { fn() }

func TestGoSchedulerRunsOnSeparateGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	// fn blocks until release is closed, which happens only after Schedule
	// has returned; an inline run would never get past this point.
	release := make(chan struct{})
	callerGoroutine := make(chan bool, 1)
	GoScheduler{}.Schedule(func() {
		defer wg.Done()
		<-release
		callerGoroutine <- false
	})
	close(release)

	select {
	case ran := <-callerGoroutine:
		assert.False(t, ran)
	case <-time.After(time.Second):
		t.Fatal("scheduled function never ran")
	}
	wg.Wait()
}
