// file: pkg/streamrpc/cancel.go
package streamrpc

import (
	"context"
	"sync"

	"github.com/dkoosis/streamrpc/internal/fsmx"
	"github.com/dkoosis/streamrpc/internal/logging"
)

// Per-inbound-request lifecycle states and events, tracked independently of
// the outstanding-request table so that a $/cancelRequest racing a natural
// completion is rejected rather than double-delivered.
const (
	requestScheduled fsmx.State = "scheduled"
	requestRunning   fsmx.State = "running"
	requestCompleted fsmx.State = "completed"
	requestCancelled fsmx.State = "cancelled"

	eventRun       fsmx.Event = "run"
	eventComplete  fsmx.Event = "complete"
	eventCancel    fsmx.Event = "cancel"
)

// newRequestLifecycle builds the lifecycle FSM for one inbound request. A
// fresh instance backs each request, so this must be called per-request,
// not once per Session.
func newRequestLifecycle(logger logging.Logger) fsmx.FSM {
	m := fsmx.NewFSM(requestScheduled, logger)
	m.AddTransition(fsmx.Transition{From: []fsmx.State{requestScheduled}, To: requestRunning, Event: eventRun})
	m.AddTransition(fsmx.Transition{From: []fsmx.State{requestScheduled, requestRunning}, To: requestCompleted, Event: eventComplete})
	m.AddTransition(fsmx.Transition{From: []fsmx.State{requestScheduled, requestRunning}, To: requestCancelled, Event: eventCancel})
	_ = m.Build()
	return m
}

// inboundCancellations tracks the lifecycle FSM for every inbound request
// currently scheduled or running, so a $/cancelRequest for an unknown or
// already-finished ID is a no-op rather than an error.
type inboundCancellations struct {
	mu        sync.Mutex
	cancelFns map[ID]func()
	lifecycle map[ID]fsmx.FSM
	logger    logging.Logger
}

func newInboundCancellations(logger logging.Logger) *inboundCancellations {
	return &inboundCancellations{
		cancelFns: make(map[ID]func()),
		lifecycle: make(map[ID]fsmx.FSM),
		logger:    logger,
	}
}

// register records a newly scheduled inbound request, returning its
// lifecycle FSM so the dispatch path can drive it through Running and
// Completed/Cancelled.
func (c *inboundCancellations) register(id ID, cancelFn func()) fsmx.FSM {
	m := newRequestLifecycle(c.logger)
	c.mu.Lock()
	c.cancelFns[id] = cancelFn
	c.lifecycle[id] = m
	c.mu.Unlock()
	return m
}

// forget drops the bookkeeping for id once its request has fully completed.
func (c *inboundCancellations) forget(id ID) {
	c.mu.Lock()
	delete(c.cancelFns, id)
	delete(c.lifecycle, id)
	c.mu.Unlock()
}

// requestCancel honors an inbound $/cancelRequest: if id is still
// scheduled or running, its context is cancelled and its lifecycle moves to
// Cancelled; otherwise requestCancel is a silent no-op, since the target
// method may have already completed naturally.
func (c *inboundCancellations) requestCancel(id ID) bool {
	c.mu.Lock()
	cancelFn, ok := c.cancelFns[id]
	m := c.lifecycle[id]
	c.mu.Unlock()
	if !ok {
		return false
	}

	if m != nil {
		if err := m.Transition(context.Background(), eventCancel, nil); err != nil {
			return false
		}
	}
	cancelFn()
	return true
}
