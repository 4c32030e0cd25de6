// file: pkg/streamrpc/pending_test.go
package streamrpc

import (
	"testing"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingCallCompleteIsIdempotent(t *testing.T) {
	call := newPendingCall(NewNumberID(1), "echo")
	call.complete([]byte(`"first"`), nil)
	call.complete([]byte(`"second"`), nil)

	outcome := <-call.resultCh
	assert.Equal(t, []byte(`"first"`), outcome.value)
	assert.NoError(t, outcome.err)
}

func TestPendingCallsAddRemoveGet(t *testing.T) {
	calls := newPendingCalls()
	call := newPendingCall(NewNumberID(7), "echo")
	calls.add(call)

	got, ok := calls.get(NewNumberID(7))
	require.True(t, ok)
	assert.Equal(t, call, got)

	calls.remove(NewNumberID(7))
	_, ok = calls.get(NewNumberID(7))
	assert.False(t, ok)
}

func TestPendingCallsCancelAllCompletesEveryCallWithConnectionLost(t *testing.T) {
	calls := newPendingCalls()
	first := newPendingCall(NewNumberID(1), "one")
	second := newPendingCall(NewNumberID(2), "two")
	calls.add(first)
	calls.add(second)

	calls.cancelAll()

	for _, call := range []*pendingCall{first, second} {
		outcome := <-call.resultCh
		require.Error(t, outcome.err)
		assert.ErrorIs(t, outcome.err, rpcerr.ErrConnectionLost)
	}

	_, ok := calls.get(NewNumberID(1))
	assert.False(t, ok)
}
