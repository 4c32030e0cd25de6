// file: pkg/streamrpc/formatter/msgpack.go
package formatter

import (
	"io"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack is a binary Formatter using MessagePack. Unlike JSON, it has no
// charset concept, so it does not implement CanHandleTextEncoding.
type MsgPack struct{}

var (
	_ Formatter    = (*MsgPack)(nil)
	_ AsyncDecoder = (*MsgPack)(nil)
)

// NewMsgPack creates a MessagePack formatter.
func NewMsgPack() *MsgPack { return &MsgPack{} }

// wirePack is the MessagePack analogue of wireMessage; msgpack's struct tag
// convention mirrors encoding/json's, letting one formatter pair reuse the
// same field names.
type wirePack struct {
	ID     *packID         `msgpack:"id,omitempty"`
	Method string          `msgpack:"method,omitempty"`
	Params msgpack.RawMessage `msgpack:"params,omitempty"`
	Result msgpack.RawMessage `msgpack:"result,omitempty"`
	Error  *packError      `msgpack:"error,omitempty"`
}

type packID struct {
	IsString bool   `msgpack:"s"`
	Num      uint64 `msgpack:"n"`
	Str      string `msgpack:"v"`
}

type packError struct {
	Code    int                `msgpack:"code"`
	Message string             `msgpack:"message"`
	Data    msgpack.RawMessage `msgpack:"data,omitempty"`
}

// Encode implements Formatter.
func (f *MsgPack) Encode(w io.Writer, msg *Neutral) error {
	wire := wirePack{Method: msg.Method}

	if msg.ID != nil {
		wire.ID = &packID{IsString: msg.ID.IsString, Num: msg.ID.Num, Str: msg.ID.Str}
	}
	if msg.HasParams && msg.Params != nil {
		wire.Params = msgpack.RawMessage(msg.Params)
	}
	if msg.HasResult && msg.Result != nil {
		wire.Result = msgpack.RawMessage(msg.Result)
	}
	if msg.Error != nil {
		pe := &packError{Code: msg.Error.Code, Message: msg.Error.Message}
		if msg.Error.Data != nil {
			pe.Data = msgpack.RawMessage(msg.Error.Data)
		}
		wire.Error = pe
	}

	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&wire); err != nil {
		return rpcerr.Wrap(err, "formatter.MsgPack: encoding message")
	}
	return nil
}

// Decode implements Formatter.
func (f *MsgPack) Decode(r io.Reader) (*Neutral, error) {
	var wire wirePack
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, rpcerr.WithDetails(
			rpcerr.Wrap(err, "formatter.MsgPack: decoding message"),
			rpcerr.CategoryProtocol, rpcerr.CodeParseError, nil,
		)
	}

	n := &Neutral{JSONRPC: "2.0", Method: wire.Method}
	if wire.ID != nil {
		n.ID = &RawID{IsString: wire.ID.IsString, Num: wire.ID.Num, Str: wire.ID.Str}
	}
	if wire.Params != nil {
		n.HasParams = true
		n.Params = []byte(wire.Params)
	}
	if wire.Result != nil {
		n.HasResult = true
		n.Result = []byte(wire.Result)
	}
	if wire.Error != nil {
		ne := &NeutralError{Code: wire.Error.Code, Message: wire.Error.Message}
		if wire.Error.Data != nil {
			ne.Data = []byte(wire.Error.Data)
		}
		n.Error = ne
	}
	return n, nil
}

// DecodeAsync implements AsyncDecoder, streaming directly off r the way
// msgpack.NewDecoder already does; no extra buffering is required for
// large payloads.
func (f *MsgPack) DecodeAsync(r io.Reader) (*Neutral, error) {
	return f.Decode(r)
}
