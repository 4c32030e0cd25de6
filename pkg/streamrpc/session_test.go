// file: pkg/streamrpc/session_test.go
package streamrpc

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/dkoosis/streamrpc/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionPair(t *testing.T) (*Session, *Session) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	cfg := config.DefaultSessionConfig()
	cfg.RequestTimeout = 2 * time.Second
	cfg.ShutdownTimeout = time.Second

	client := NewSession(clientConn, cfg)
	server := NewSession(serverConn, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = client.Listen(ctx) }()
	go func() { _ = server.Listen(ctx) }()

	return client, server
}

func TestSessionInvokeRoundTrip(t *testing.T) {
	client, server := newSessionPair(t)
	require.NoError(t, server.AddLocalTargetFunc("echo", true, func(ctx context.Context, params []byte) (interface{}, error) {
		return json.RawMessage(params), nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var result string
	err := client.Invoke(ctx, "echo", "hello", &result)
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestSessionInvokeMethodNotFound(t *testing.T) {
	client, _ := newSessionPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.Invoke(ctx, "missing", nil, nil)
	assert.Error(t, err)
}

func TestSessionPingIsHandledWithoutRegisteredTarget(t *testing.T) {
	client, _ := newSessionPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var pong string
	err := client.Invoke(ctx, MethodPing, nil, &pong)
	require.NoError(t, err)
	assert.Equal(t, "pong", pong)
}

func TestSessionNotifyDoesNotWaitForReply(t *testing.T) {
	client, server := newSessionPair(t)
	received := make(chan string, 1)
	require.NoError(t, server.AddLocalTargetFunc("log", true, func(ctx context.Context, params []byte) (interface{}, error) {
		received <- string(params)
		return nil, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, client.Notify(ctx, "log", "hi"))

	select {
	case msg := <-received:
		assert.Equal(t, `"hi"`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached target")
	}
}

func TestSessionInvokeCancelledByCallerContext(t *testing.T) {
	client, server := newSessionPair(t)
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	require.NoError(t, server.AddLocalTargetFunc("slow", false, func(ctx context.Context, params []byte) (interface{}, error) {
		<-block
		return nil, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Invoke(ctx, "slow", nil, nil)
	assert.Error(t, err)
}

func TestSessionDisconnectCancelsOutstandingCalls(t *testing.T) {
	client, server := newSessionPair(t)
	block := make(chan struct{})
	defer close(block)
	require.NoError(t, server.AddLocalTargetFunc("slow", false, func(ctx context.Context, params []byte) (interface{}, error) {
		<-block
		return nil, nil
	}))

	done := make(chan error, 1)
	go func() {
		done <- client.Invoke(context.Background(), "slow", nil, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	client.Disconnect(context.Background(), nil)

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("invoke never unblocked after disconnect")
	}
}
