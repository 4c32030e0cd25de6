// file: pkg/streamrpc/pending.go
package streamrpc

import (
	"sync"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
)

// pendingCall tracks one outbound Invoke awaiting a Result or Error from the
// peer. done is closed exactly once, by the first call to complete (from a
// response or from pendingCalls.cancelAll), so a racing natural completion
// and session teardown can't both deliver to resultCh.
type pendingCall struct {
	id       ID
	method   string
	resultCh chan pendingOutcome
	done     chan struct{}
	once     sync.Once
}

type pendingOutcome struct {
	value []byte
	err   error
}

func newPendingCall(id ID, method string) *pendingCall {
	return &pendingCall{
		id:       id,
		method:   method,
		resultCh: make(chan pendingOutcome, 1),
		done:     make(chan struct{}),
	}
}

// complete is idempotent: only the first caller's outcome is delivered.
func (p *pendingCall) complete(value []byte, err error) {
	p.once.Do(func() {
		p.resultCh <- pendingOutcome{value: value, err: err}
		close(p.done)
	})
}

// pendingCalls is the outstanding-request table for one Session's outbound
// invocations, guarded by its own mutex independent of the session's other
// locks.
type pendingCalls struct {
	mu    sync.Mutex
	byID  map[ID]*pendingCall
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{byID: make(map[ID]*pendingCall)}
}

func (p *pendingCalls) add(call *pendingCall) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[call.id] = call
}

func (p *pendingCalls) remove(id ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, id)
}

func (p *pendingCalls) get(id ID) (*pendingCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call, ok := p.byID[id]
	return call, ok
}

// cancelAll completes every outstanding call with ErrConnectionLost, used
// once by a Session transitioning to Disconnecting so no caller of Invoke
// blocks forever on a connection that will never answer.
func (p *pendingCalls) cancelAll() {
	p.mu.Lock()
	calls := make([]*pendingCall, 0, len(p.byID))
	for _, c := range p.byID {
		calls = append(calls, c)
	}
	p.byID = make(map[ID]*pendingCall)
	p.mu.Unlock()

	for _, c := range calls {
		c.complete(nil, rpcerr.WithDetails(
			rpcerr.ErrConnectionLost, rpcerr.CategoryConnectionLost, rpcerr.CodeInternalError,
			map[string]interface{}{"method": c.method},
		))
	}
}
