// file: pkg/streamrpc/reserved.go
package streamrpc

// Reserved method names the engine itself handles, never forwarded to a
// registered target.
const (
	// MethodCancelRequest cancels a previously-sent request by ID.
	MethodCancelRequest = "$/cancelRequest"
	// MethodPing is a fast-path keepalive handled without scheduling a
	// goroutine through the dispatcher.
	MethodPing = "$/ping"
	// MethodShutdown begins the cooperative two-phase shutdown handshake.
	MethodShutdown = "$/shutdown"
)

func isReservedMethod(method string) bool {
	switch method {
	case MethodCancelRequest, MethodPing, MethodShutdown:
		return true
	default:
		return false
	}
}

// cancelRequestParams is the payload of a $/cancelRequest notification.
type cancelRequestParams struct {
	ID ID `json:"id"`
}
