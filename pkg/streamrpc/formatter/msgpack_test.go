// file: pkg/streamrpc/formatter/msgpack_test.go
package formatter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestMsgPackRoundTripsRequest(t *testing.T) {
	f := NewMsgPack()
	var buf bytes.Buffer

	msg := &Neutral{
		ID:        &RawID{Num: 7},
		Method:    "echo",
		HasParams: true,
		Params:    mustMsgpack(t, map[string]string{"text": "hi"}),
	}
	require.NoError(t, f.Encode(&buf, msg))

	decoded, err := f.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "echo", decoded.Method)
	assert.Equal(t, uint64(7), decoded.ID.Num)
}

func TestMsgPackRoundTripsStringID(t *testing.T) {
	f := NewMsgPack()
	var buf bytes.Buffer
	require.NoError(t, f.Encode(&buf, &Neutral{ID: &RawID{IsString: true, Str: "x"}, Method: "m"}))

	decoded, err := f.Decode(&buf)
	require.NoError(t, err)
	assert.True(t, decoded.ID.IsString)
	assert.Equal(t, "x", decoded.ID.Str)
}

func TestMsgPackRoundTripsError(t *testing.T) {
	f := NewMsgPack()
	var buf bytes.Buffer
	require.NoError(t, f.Encode(&buf, &Neutral{
		ID:    &RawID{Num: 1},
		Error: &NeutralError{Code: -32000, Message: "boom"},
	}))

	decoded, err := f.Decode(&buf)
	require.NoError(t, err)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, -32000, decoded.Error.Code)
}

func TestMsgPackDecodeRejectsMalformedInput(t *testing.T) {
	f := NewMsgPack()
	_, err := f.Decode(bytes.NewReader([]byte{0xff, 0xff, 0xff}))
	assert.Error(t, err)
}

func mustMsgpack(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return b
}
