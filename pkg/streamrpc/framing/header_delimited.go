// file: pkg/streamrpc/framing/header_delimited.go
package framing

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
)

// contentLengthHeader is the header name used to delimit messages, matching
// the Content-Length convention shared by LSP and DAP over stdio.
const contentLengthHeader = "Content-Length: "

// HeaderDelimited frames each message with an HTTP-style header block
// terminated by a blank line, naming the body length in Content-Length.
type HeaderDelimited struct {
	r              *bufio.Reader
	w              io.Writer
	closer         io.Closer
	writeMu        sync.Mutex
	maxMessageSize int
}

var _ Handler = (*HeaderDelimited)(nil)

// NewHeaderDelimited wraps t with header-delimited framing.
func NewHeaderDelimited(t Transport, maxMessageSize int) *HeaderDelimited {
	return &HeaderDelimited{
		r:              bufio.NewReader(t),
		w:              t,
		closer:         t,
		maxMessageSize: maxMessageSize,
	}
}

// ReadMessage implements Handler.
func (h *HeaderDelimited) ReadMessage() ([]byte, error) {
	contentLength := -1
	for {
		line, err := h.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil, io.EOF
			}
			return nil, rpcerr.WithDetails(
				rpcerr.Wrap(err, "framing.HeaderDelimited: reading header line"),
				rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
			)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if rest, ok := strings.CutPrefix(line, contentLengthHeader); ok {
			n, convErr := strconv.Atoi(strings.TrimSpace(rest))
			if convErr != nil {
				return nil, rpcerr.WithDetails(
					rpcerr.Wrapf(convErr, "framing.HeaderDelimited: invalid Content-Length %q", rest),
					rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, nil,
				)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, rpcerr.WithDetails(
			rpcerr.New("framing.HeaderDelimited: message missing Content-Length header"),
			rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, nil,
		)
	}
	if h.maxMessageSize > 0 && contentLength > h.maxMessageSize {
		return nil, rpcerr.WithDetails(
			rpcerr.Newf("framing.HeaderDelimited: message length %d exceeds max %d", contentLength, h.maxMessageSize),
			rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, nil,
		)
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(h.r, payload); err != nil {
		return nil, rpcerr.WithDetails(
			rpcerr.Wrap(err, "framing.HeaderDelimited: reading message body"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	return payload, nil
}

// WriteMessage implements Handler.
func (h *HeaderDelimited) WriteMessage(payload []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	header := fmt.Sprintf("%s%d\r\n\r\n", contentLengthHeader, len(payload))
	if _, err := io.WriteString(h.w, header); err != nil {
		return rpcerr.WithDetails(
			rpcerr.Wrap(err, "framing.HeaderDelimited: writing header"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	if _, err := h.w.Write(payload); err != nil {
		return rpcerr.WithDetails(
			rpcerr.Wrap(err, "framing.HeaderDelimited: writing message body"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	return nil
}

// Close implements Handler.
func (h *HeaderDelimited) Close() error { return h.closer.Close() }
