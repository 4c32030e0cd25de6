// Package framing delimits individual messages on a duplex byte stream, so
// a Formatter only ever sees exactly one message's bytes at a time.
package framing

// file: pkg/streamrpc/framing/framing.go

import "io"

// Transport is the minimal duplex channel a MessageHandler needs: framing
// implementations never assume anything about the concrete connection
// beyond Read, Write, and Close.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Handler frames and unframes messages on top of a Transport. ReadMessage
// returns the next message's raw bytes (already stripped of any
// length/header framing); WriteMessage adds the framing around payload and
// writes it to the transport in a single call.
type Handler interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
}

// DefaultAsyncDecodeThreshold is the 32 KiB payload size also used as
// config.FramingConfig's default async-decode threshold. Neither the
// handlers in this package nor Session consult it: ReadMessage always
// returns the fully buffered payload.
const DefaultAsyncDecodeThreshold = 32 * 1024
