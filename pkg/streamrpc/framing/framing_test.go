// file: pkg/streamrpc/framing/framing_test.go
package framing

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTransport adapts a bytes.Buffer to Transport for round-trip tests.
type memTransport struct {
	*bytes.Buffer
}

func (memTransport) Close() error { return nil }

func newMemTransport() memTransport {
	return memTransport{Buffer: &bytes.Buffer{}}
}

func TestLengthPrefixedRoundTrip(t *testing.T) {
	buf := newMemTransport()
	h := NewLengthPrefixed(buf, 0)

	require.NoError(t, h.WriteMessage([]byte(`{"method":"echo"}`)))
	require.NoError(t, h.WriteMessage([]byte(`{"method":"ping"}`)))

	msg1, err := h.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"method":"echo"}`, string(msg1))

	msg2, err := h.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"method":"ping"}`, string(msg2))
}

func TestLengthPrefixedReadReturnsEOFOnEmptyStream(t *testing.T) {
	h := NewLengthPrefixed(newMemTransport(), 0)
	_, err := h.ReadMessage()
	assert.Equal(t, io.EOF, err)
}

func TestLengthPrefixedRejectsOversizedMessage(t *testing.T) {
	buf := newMemTransport()
	h := NewLengthPrefixed(buf, 4)
	require.NoError(t, h.WriteMessage([]byte(`{"too":"big"}`)))

	_, err := h.ReadMessage()
	assert.Error(t, err)
}

func TestHeaderDelimitedRoundTrip(t *testing.T) {
	buf := newMemTransport()
	h := NewHeaderDelimited(buf, 0)

	require.NoError(t, h.WriteMessage([]byte(`{"method":"echo"}`)))
	require.NoError(t, h.WriteMessage([]byte(`{"method":"ping"}`)))

	msg1, err := h.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"method":"echo"}`, string(msg1))

	msg2, err := h.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"method":"ping"}`, string(msg2))
}

func TestHeaderDelimitedMissingContentLength(t *testing.T) {
	buf := newMemTransport()
	buf.WriteString("X-Other: value\r\n\r\nbody")
	h := NewHeaderDelimited(buf, 0)

	_, err := h.ReadMessage()
	assert.Error(t, err)
}

func TestHeaderDelimitedReadReturnsEOFOnEmptyStream(t *testing.T) {
	h := NewHeaderDelimited(newMemTransport(), 0)
	_, err := h.ReadMessage()
	assert.Equal(t, io.EOF, err)
}

func TestHeaderDelimitedRejectsOversizedMessage(t *testing.T) {
	buf := newMemTransport()
	h := NewHeaderDelimited(buf, 4)
	require.NoError(t, h.WriteMessage([]byte(`{"too":"big"}`)))

	_, err := h.ReadMessage()
	assert.Error(t, err)
}
