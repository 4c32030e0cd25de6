// file: pkg/streamrpc/framing/length_prefixed.go
package framing

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
)

// LengthPrefixed frames each message with a 4-byte big-endian length
// prefix, the simplest and most compact framing for binary formatters like
// MessagePack.
type LengthPrefixed struct {
	r            *bufio.Reader
	w            io.Writer
	closer       io.Closer
	writeMu      sync.Mutex
	maxMessageSize int
}

var _ Handler = (*LengthPrefixed)(nil)

// NewLengthPrefixed wraps t with length-prefixed framing. maxMessageSize
// bounds the length prefix to guard against a corrupt or hostile peer
// requesting an unbounded allocation; 0 means unbounded.
func NewLengthPrefixed(t Transport, maxMessageSize int) *LengthPrefixed {
	return &LengthPrefixed{
		r:              bufio.NewReader(t),
		w:              t,
		closer:         t,
		maxMessageSize: maxMessageSize,
	}
}

// ReadMessage implements Handler.
func (h *LengthPrefixed) ReadMessage() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(h.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, rpcerr.WithDetails(
			rpcerr.Wrap(err, "framing.LengthPrefixed: reading length prefix"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if h.maxMessageSize > 0 && int(length) > h.maxMessageSize {
		return nil, rpcerr.WithDetails(
			rpcerr.Newf("framing.LengthPrefixed: message length %d exceeds max %d", length, h.maxMessageSize),
			rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, nil,
		)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(h.r, payload); err != nil {
		return nil, rpcerr.WithDetails(
			rpcerr.Wrap(err, "framing.LengthPrefixed: reading message body"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	return payload, nil
}

// WriteMessage implements Handler.
func (h *LengthPrefixed) WriteMessage(payload []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := h.w.Write(lenBuf[:]); err != nil {
		return rpcerr.WithDetails(
			rpcerr.Wrap(err, "framing.LengthPrefixed: writing length prefix"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	if _, err := h.w.Write(payload); err != nil {
		return rpcerr.WithDetails(
			rpcerr.Wrap(err, "framing.LengthPrefixed: writing message body"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	return nil
}

// Close implements Handler.
func (h *LengthPrefixed) Close() error { return h.closer.Close() }
