// file: pkg/streamrpc/message_test.go
package streamrpc

import (
	"testing"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"github.com/stretchr/testify/assert"
)

func TestRequestKindAndNotification(t *testing.T) {
	call := &Request{ID: NewNumberID(1), Method: "echo"}
	assert.Equal(t, KindRequest, call.Kind())
	assert.False(t, call.IsNotification())

	notify := &Request{ID: NullID, Method: "log"}
	assert.True(t, notify.IsNotification())
}

func TestResultAndErrorKinds(t *testing.T) {
	res := &Result{ID: NewNumberID(1), Value: []byte(`"ok"`)}
	assert.Equal(t, KindResult, res.Kind())

	errMsg := &Error{ID: NewNumberID(1), Code: rpcerr.CodeMethodNotFound, Message: "not found"}
	assert.Equal(t, KindError, errMsg.Kind())
}

func TestMessageSealedUnionMembership(t *testing.T) {
	var messages []Message = []Message{
		&Request{},
		&Result{},
		&Error{},
	}
	assert.Len(t, messages, 3)
}
