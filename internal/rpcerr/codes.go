// Package rpcerr defines error categories, JSON-RPC codes, and the
// cockroachdb/errors-based wrapping helpers used throughout streamrpc.
// file: internal/rpcerr/codes.go
package rpcerr

// Category groups errors by the subsystem that produced them, independent of
// the JSON-RPC wire code. Categories let callers branch on "what kind of
// thing went wrong" without string-matching error messages.
type Category string

// Error categories, one per propagation-policy bucket in the engine's error
// handling design.
const (
	CategoryTransport      Category = "transport"       // I/O failures on the underlying duplex channel.
	CategoryProtocol       Category = "protocol"         // Malformed frame or message.
	CategoryDispatch       Category = "dispatch"         // Method-not-found, invalid-params.
	CategoryTarget         Category = "target"           // Registered target returned or panicked with an error.
	CategoryRemote         Category = "remote"           // Peer returned an error response to an outbound call.
	CategoryCancelled      Category = "cancelled"        // Caller cancelled an outbound invocation.
	CategoryConnectionLost Category = "connection_lost"  // Session disconnected while a call was outstanding.
	CategoryDisposed       Category = "disposed"         // Operation attempted on a disposed/unlistened session.
)

// Code is a JSON-RPC 2.0 error code. Negative values in -32768..-32000 are
// reserved by the protocol; application codes live outside that range,
// except for the -32000..-32099 band carved out for server-defined errors.
type Code int

// The engine's error-code catalogue.
const (
	CodeParseError      Code = -32700 // Formatter rejected bytes.
	CodeInvalidRequest  Code = -32600 // Well-formed but not a valid Request.
	CodeMethodNotFound  Code = -32601 // No local target resolves the name.
	CodeInvalidParams   Code = -32602 // Argument coercion failed.
	CodeInternalError   Code = -32603 // Unhandled engine failure.
	CodeInvocationError Code = -32000 // Target threw a domain exception.
	CodeRequestCancelled Code = -32800 // Target honored cancellation.
)

// UserFacingMessage returns a stable, non-sensitive message for a code, used
// when the originating error's own message should not cross the wire.
func UserFacingMessage(code Code) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	case CodeInvocationError:
		return "Invocation error"
	case CodeRequestCancelled:
		return "Request cancelled"
	default:
		return "Internal error"
	}
}
