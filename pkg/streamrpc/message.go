// Package streamrpc implements a bidirectional JSON-RPC 2.0 engine over an
// arbitrary duplex transport: framing, formatting, outstanding-request
// correlation, and session lifecycle, independent of the concrete wire
// serializer or transport a host process chooses.
package streamrpc

// file: pkg/streamrpc/message.go

import "github.com/dkoosis/streamrpc/internal/rpcerr"

// MessageKind discriminates the Message sealed union.
type MessageKind int

const (
	// KindRequest marks a Message as a *Request (a call or a notification,
	// distinguished by ID.IsNull()).
	KindRequest MessageKind = iota
	// KindResult marks a Message as a *Result, a successful response.
	KindResult
	// KindError marks a Message as an *Error, a failed response.
	KindError
)

// Message is the sealed union of everything a Formatter can decode off the
// wire: a Request, a Result, or an Error. Only the three types in this file
// implement it; the unexported method prevents other packages from adding
// new variants.
type Message interface {
	Kind() MessageKind
	sealedMessage()
}

// Request is an inbound or outbound call. A Request with a null ID is a
// notification: no Result or Error will ever be sent for it.
type Request struct {
	ID     ID
	Method string
	Params []byte // formatter-encoded; nil means "no arguments".
}

// Kind implements Message.
func (*Request) Kind() MessageKind { return KindRequest }
func (*Request) sealedMessage()    {}

// IsNotification reports whether r expects no response.
func (r *Request) IsNotification() bool { return r.ID.IsNull() }

// Result is a successful response to a prior Request.
type Result struct {
	ID    ID
	Value []byte // formatter-encoded.
}

// Kind implements Message.
func (*Result) Kind() MessageKind { return KindResult }
func (*Result) sealedMessage()    {}

// Error is a failed response to a prior Request.
type Error struct {
	ID      ID
	Code    rpcerr.Code
	Message string
	Data    []byte // formatter-encoded, may be nil.
}

// Kind implements Message.
func (*Error) Kind() MessageKind { return KindError }
func (*Error) sealedMessage()    {}
