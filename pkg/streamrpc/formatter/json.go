// file: pkg/streamrpc/formatter/json.go
package formatter

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
)

// protocolVersion selects between JSON-RPC 2.0 and the 1.0 compatibility
// mode, which omits the "jsonrpc" field.
type protocolVersion int

const (
	// ProtocolV2 emits and expects the "jsonrpc": "2.0" field.
	ProtocolV2 protocolVersion = iota
	// ProtocolV1 omits the "jsonrpc" field entirely, matching JSON-RPC 1.0
	// clients that predate the 2.0 spec.
	ProtocolV1
)

// JSON is the default Formatter, encoding Neutral values as JSON-RPC 2.0
// (or 1.0 in compatibility mode) wire objects.
type JSON struct {
	Protocol protocolVersion
	charset  string
}

var (
	_ Formatter             = (*JSON)(nil)
	_ CanHandleTextEncoding = (*JSON)(nil)
)

// NewJSON creates a JSON formatter in JSON-RPC 2.0 mode with UTF-8 encoding.
func NewJSON() *JSON {
	return &JSON{Protocol: ProtocolV2, charset: "utf-8"}
}

// NewJSON1 creates a JSON formatter in JSON-RPC 1.0 compatibility mode.
func NewJSON1() *JSON {
	return &JSON{Protocol: ProtocolV1, charset: "utf-8"}
}

// SetEncoding implements CanHandleTextEncoding. Only UTF-8 is supported;
// any other charset is rejected rather than silently mis-decoded.
func (f *JSON) SetEncoding(charset string) error {
	normalized := strings.ToLower(strings.TrimSpace(charset))
	if normalized != "" && normalized != "utf-8" && normalized != "utf8" {
		return rpcerr.Newf("formatter.JSON: unsupported charset %q, only utf-8 is implemented", charset)
	}
	f.charset = "utf-8"
	return nil
}

// wireMessage is the on-wire JSON shape, covering requests, notifications,
// results, and errors in one struct since JSON-RPC messages are
// distinguished by which fields are present, not by a type tag.
type wireMessage struct {
	JSONRPC string           `json:"jsonrpc,omitempty"`
	ID      json.RawMessage  `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *wireError       `json:"error,omitempty"`
}

type wireError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Encode implements Formatter.
func (f *JSON) Encode(w io.Writer, msg *Neutral) error {
	wire := wireMessage{Method: msg.Method}
	if f.Protocol == ProtocolV2 {
		wire.JSONRPC = "2.0"
	}

	if msg.ID != nil {
		idBytes, err := encodeRawID(msg.ID)
		if err != nil {
			return rpcerr.Wrap(err, "formatter.JSON: encoding id")
		}
		wire.ID = idBytes
	}

	if msg.HasParams {
		if msg.Params == nil {
			wire.Params = json.RawMessage("null")
		} else {
			wire.Params = json.RawMessage(msg.Params)
		}
	}

	if msg.HasResult {
		if msg.Result == nil {
			wire.Result = json.RawMessage("null")
		} else {
			wire.Result = json.RawMessage(msg.Result)
		}
	}

	if msg.Error != nil {
		we := &wireError{Code: msg.Error.Code, Message: msg.Error.Message}
		if msg.Error.Data != nil {
			we.Data = json.RawMessage(msg.Error.Data)
		}
		wire.Error = we
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(wire); err != nil {
		return rpcerr.Wrap(err, "formatter.JSON: encoding message")
	}
	return nil
}

// Decode implements Formatter.
func (f *JSON) Decode(r io.Reader) (*Neutral, error) {
	var wire wireMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, rpcerr.WithDetails(
			rpcerr.Wrap(err, "formatter.JSON: decoding message"),
			rpcerr.CategoryProtocol, rpcerr.CodeParseError, nil,
		)
	}
	return f.toNeutral(&wire)
}

// DecodeAsync implements AsyncDecoder by delegating to Decode: JSON's
// decoder already streams from r incrementally, so no separate buffering
// strategy is needed for large payloads.
func (f *JSON) DecodeAsync(r io.Reader) (*Neutral, error) {
	return f.Decode(r)
}

var _ AsyncDecoder = (*JSON)(nil)

func (f *JSON) toNeutral(wire *wireMessage) (*Neutral, error) {
	n := &Neutral{JSONRPC: wire.JSONRPC, Method: wire.Method}

	if wire.ID != nil {
		rawID, err := decodeRawID(wire.ID)
		if err != nil {
			return nil, rpcerr.WithDetails(
				rpcerr.Wrap(err, "formatter.JSON: decoding id"),
				rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, nil,
			)
		}
		n.ID = rawID
	}

	if wire.Params != nil {
		n.HasParams = true
		if string(wire.Params) != "null" {
			n.Params = []byte(wire.Params)
		}
	}

	if wire.Result != nil {
		n.HasResult = true
		if string(wire.Result) != "null" {
			n.Result = []byte(wire.Result)
		}
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

func encodeRawID(id *RawID) (json.RawMessage, error) {
	if id.IsString {
		return json.Marshal(id.Str)
	}
	return json.Marshal(id.Num)
}

func decodeRawID(raw json.RawMessage) (*RawID, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	var num uint64
	if err := json.Unmarshal(raw, &num); err == nil {
		return &RawID{Num: num}, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, err
	}
	return &RawID{IsString: true, Str: str}, nil
}
