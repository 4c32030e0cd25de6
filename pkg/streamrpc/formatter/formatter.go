// Package formatter serializes and deserializes streamrpc messages onto the
// wire, independent of how those bytes are framed or transported.
package formatter

// file: pkg/streamrpc/formatter/formatter.go

import (
	"io"
)

// Neutral is the formatter-agnostic intermediate representation a
// MessageHandler hands to a Formatter for encoding, and receives back after
// decoding. It mirrors the JSON-RPC 2.0 wire shape without committing to
// any particular serialization.
type Neutral struct {
	// JSONRPC carries the protocol version tag ("2.0"), or "" for 1.0
	// compatibility mode where the field is absent on the wire.
	JSONRPC string

	ID     *RawID
	Method string

	// HasParams distinguishes "params omitted" from "params: null", since
	// the two are different protocol states.
	HasParams bool
	Params    []byte

	HasResult bool
	Result    []byte

	Error *NeutralError
}

// NeutralError is the formatter-agnostic error object.
type NeutralError struct {
	Code    int
	Message string
	Data    []byte
}

// RawID is the formatter-agnostic request identifier: exactly one of Num or
// Str is meaningful, selected by IsString.
type RawID struct {
	IsString bool
	Num      uint64
	Str      string
}

// Formatter encodes and decodes Neutral values to and from bytes. Each
// implementation declares its own wire format (JSON, MessagePack, ...);
// callers select formatters by capability rather than by concrete type.
type Formatter interface {
	// Encode serializes msg to w.
	Encode(w io.Writer, msg *Neutral) error
	// Decode deserializes a single message from r.
	Decode(r io.Reader) (*Neutral, error)
}

// CanHandleTextEncoding is implemented by formatters whose wire format is
// text and therefore charset-sensitive (e.g. JSON's UTF-8/UTF-16/UTF-32
// options). Binary formatters like MessagePack do not implement it.
type CanHandleTextEncoding interface {
	// SetEncoding selects the text encoding for subsequent Encode/Decode
	// calls, given a MIME charset parameter value (e.g. "utf-8").
	SetEncoding(charset string) error
}

// AsyncDecoder is implemented by formatters that can stream-decode a large
// payload off a sub-reader supplied by the MessageHandler, instead of
// requiring the whole message to be buffered in memory first.
type AsyncDecoder interface {
	DecodeAsync(r io.Reader) (*Neutral, error)
}
