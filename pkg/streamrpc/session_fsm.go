// file: pkg/streamrpc/session_fsm.go
package streamrpc

import (
	"context"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"github.com/qmuntal/stateless"
)

// SessionState is one of the four lifecycle states a Session moves through
// exactly once, in order.
type SessionState string

const (
	StateCreated       SessionState = "Created"
	StateListening     SessionState = "Listening"
	StateDisconnecting SessionState = "Disconnecting"
	StateDisconnected  SessionState = "Disconnected"
)

const (
	triggerListen       = "listen"
	triggerBeginClose   = "begin-close"
	triggerFinishClose  = "finish-close"
)

// newSessionMachine builds the qmuntal/stateless machine enforcing the
// session's one-way lifecycle. onDisconnecting and onDisconnected run
// synchronously as part of the firing transition.
func newSessionMachine(onDisconnecting func(ctx context.Context), onDisconnected func(ctx context.Context)) *stateless.StateMachine {
	sm := stateless.NewStateMachine(StateCreated)

	sm.Configure(StateCreated).
		Permit(triggerListen, StateListening)

	sm.Configure(StateListening).
		Permit(triggerBeginClose, StateDisconnecting)

	sm.Configure(StateDisconnecting).
		OnEntry(func(ctx context.Context, _ ...interface{}) error {
			if onDisconnecting != nil {
				onDisconnecting(ctx)
			}
			return nil
		}).
		Permit(triggerFinishClose, StateDisconnected)

	sm.Configure(StateDisconnected).
		OnEntry(func(ctx context.Context, _ ...interface{}) error {
			if onDisconnected != nil {
				onDisconnected(ctx)
			}
			return nil
		})

	return sm
}

// currentSessionState reads the machine's current state, translating the
// stateless package's untyped State() into the typed SessionState callers
// expect.
func currentSessionState(ctx context.Context, sm *stateless.StateMachine) (SessionState, error) {
	raw, err := sm.State(ctx)
	if err != nil {
		return "", rpcerr.Wrap(err, "streamrpc: reading session state")
	}
	state, ok := raw.(SessionState)
	if !ok {
		return "", rpcerr.Newf("streamrpc: unexpected session state value %v", raw)
	}
	return state, nil
}
