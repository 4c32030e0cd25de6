// file: pkg/streamrpc/session.go
package streamrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/dkoosis/streamrpc/internal/config"
	"github.com/dkoosis/streamrpc/internal/logging"
	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"github.com/dkoosis/streamrpc/internal/telemetry"
	"github.com/dkoosis/streamrpc/internal/validation"
	"github.com/dkoosis/streamrpc/pkg/streamrpc/formatter"
	"github.com/dkoosis/streamrpc/pkg/streamrpc/framing"
	"github.com/google/uuid"
)

// Session is one bidirectional JSON-RPC connection: a formatter, a framed
// transport, an outstanding-request table for outbound calls, and a
// dispatcher for inbound ones, moving through the Created -> Listening ->
// Disconnecting -> Disconnected lifecycle exactly once.
type Session struct {
	id uuid.UUID

	cfg       config.SessionConfig
	formatter formatter.Formatter
	handler   framing.Handler

	targets    *targetMap
	pending    *pendingCalls
	inbound    *inboundCancellations
	dispatcher *dispatcher
	scheduler  Scheduler
	checker    validation.ParamsChecker
	telemetry  *telemetry.Collector
	logger     logging.Logger

	nextID uint64

	writeMu sync.Mutex

	disconnectMu        sync.Mutex
	disconnectCallbacks []func(error)

	sm       interface {
		fire(ctx context.Context, trigger string) error
		state(ctx context.Context) (SessionState, error)
	}
	smImpl *sessionStateMachine

	doneCh chan struct{}
	runErr error
}

// sessionStateMachine narrows *stateless.StateMachine to what Session needs,
// giving tests a seam to substitute a fake without dragging in stateless.
type sessionStateMachine struct {
	underlying interface {
		FireCtx(ctx context.Context, trigger interface{}, args ...interface{}) error
		State(ctx context.Context) (interface{}, error)
	}
}

func (m *sessionStateMachine) fire(ctx context.Context, trigger string) error {
	return m.underlying.FireCtx(ctx, trigger)
}

func (m *sessionStateMachine) state(ctx context.Context) (SessionState, error) {
	raw, err := m.underlying.State(ctx)
	if err != nil {
		return "", err
	}
	s, _ := raw.(SessionState)
	return s, nil
}

// NewSession constructs a Session over transport using cfg's framing and
// formatter choices. The Session does not start reading until Listen runs.
func NewSession(transport framing.Transport, cfg config.SessionConfig, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New(),
		cfg:       cfg,
		formatter: formatterFor(cfg.Formatter),
		targets:   newTargetMap(),
		pending:   newPendingCalls(),
		scheduler: GoScheduler{},
		logger:    logging.GetLogger("session"),
		doneCh:    make(chan struct{}),
	}

	switch cfg.Framing.Kind {
	case config.FramingHeaderDelimited:
		s.handler = framing.NewHeaderDelimited(transport, cfg.Framing.MaxMessageSize)
	default:
		s.handler = framing.NewLengthPrefixed(transport, cfg.Framing.MaxMessageSize)
	}

	for _, opt := range opts {
		opt(s)
	}

	s.inbound = newInboundCancellations(s.logger)

	underlying := newSessionMachine(
		func(ctx context.Context) { s.onDisconnecting(ctx) },
		func(ctx context.Context) { s.onDisconnected(ctx) },
	)
	s.smImpl = &sessionStateMachine{underlying: underlying}
	s.sm = s.smImpl

	s.dispatcher = newDispatcher(s.targets, s.scheduler, s.checker, s.telemetry, s.logger, cfg.MaxConcurrentInbound, cfg.RequestTimeout)

	return s
}

// ID is the session's diagnostic identifier, stable for its lifetime.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the session's current lifecycle state.
func (s *Session) State(ctx context.Context) (SessionState, error) {
	return s.sm.state(ctx)
}

// OnDisconnected registers fn to run once the session reaches Disconnected.
// Multiple callbacks may be registered; they run in registration order.
func (s *Session) OnDisconnected(fn func(err error)) {
	s.disconnectMu.Lock()
	defer s.disconnectMu.Unlock()
	s.disconnectCallbacks = append(s.disconnectCallbacks, fn)
}

// Listen transitions the session to Listening and runs the read loop until
// the transport closes or fails, then drives the session through
// Disconnecting to Disconnected before returning. ctx is checked between
// messages, so a cancelled ctx ends the loop once the pending read returns.
func (s *Session) Listen(ctx context.Context) error {
	if err := s.sm.fire(ctx, triggerListen); err != nil {
		return rpcerr.WithDetails(
			rpcerr.Wrap(err, "streamrpc: session cannot begin listening"),
			rpcerr.CategoryDispatch, rpcerr.CodeInternalError, nil,
		)
	}

	s.logger.Info("session listening", "id", s.id)
	readErr := s.readLoop(ctx)
	s.Disconnect(ctx, readErr)
	return readErr
}

// Disconnect begins (or no-ops on a repeat call to) the Disconnecting ->
// Disconnected transition, recording cause as the session's terminal error.
func (s *Session) Disconnect(ctx context.Context, cause error) {
	state, _ := s.sm.state(ctx)
	if state == StateDisconnecting || state == StateDisconnected {
		return
	}
	s.runErr = cause
	if err := s.sm.fire(ctx, triggerBeginClose); err != nil {
		s.logger.Warn("session disconnect transition rejected", "error", err)
		return
	}
	_ = s.sm.fire(ctx, triggerFinishClose)
}

func (s *Session) onDisconnecting(ctx context.Context) {
	s.logger.Info("session disconnecting", "id", s.id, "cause", s.runErr)
	s.pending.cancelAll()
	_ = s.handler.Close()
}

func (s *Session) onDisconnected(ctx context.Context) {
	close(s.doneCh)
	s.disconnectMu.Lock()
	callbacks := append([]func(error){}, s.disconnectCallbacks...)
	s.disconnectMu.Unlock()
	for _, cb := range callbacks {
		cb(s.runErr)
	}
}

// Done returns a channel closed once the session reaches Disconnected.
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// readLoop consumes framed messages until the transport returns io.EOF or a
// fatal error, dispatching each decoded message by its kind.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := s.handler.ReadMessage()
		if err != nil {
			return err
		}

		neutral, err := s.formatter.Decode(bytes.NewReader(payload))
		if err != nil {
			s.logger.Warn("discarding unparseable message", "error", err)
			continue
		}

		s.handleNeutral(ctx, neutral)
	}
}

func (s *Session) handleNeutral(ctx context.Context, n *formatter.Neutral) {
	switch {
	case n.Method != "":
		s.handleInboundRequest(ctx, n)
	default:
		s.handleInboundResponse(n)
	}
}

func (s *Session) handleInboundResponse(n *formatter.Neutral) {
	id := rawIDToID(n.ID)
	call, ok := s.pending.get(id)
	if !ok {
		s.logger.Warn("response for unknown or already-completed request", "id", id.String())
		return
	}
	s.pending.remove(id)

	if n.Error != nil {
		call.complete(nil, rpcerr.WithDetails(
			rpcerr.Newf("remote error for method %q: %s", call.method, n.Error.Message),
			rpcerr.CategoryRemote, rpcerr.Code(n.Error.Code),
			map[string]interface{}{"method": call.method},
		))
		return
	}
	call.complete(n.Result, nil)
}

func (s *Session) handleInboundRequest(ctx context.Context, n *formatter.Neutral) {
	id := rawIDToID(n.ID)
	isNotification := n.ID == nil

	switch n.Method {
	case MethodPing:
		if !isNotification {
			s.writeResult(id, []byte(`"pong"`))
		}
		return
	case MethodCancelRequest:
		s.handleCancelRequest(n.Params)
		return
	case MethodShutdown:
		s.handleShutdownRequest(ctx, id, isNotification)
		return
	}

	req := &Request{ID: id, Method: n.Method, Params: n.Params}
	if !n.HasParams {
		req.Params = nil
	}

	reqCtx, cancel := context.WithCancel(ctx)
	var lifecycle = newRequestLifecycle(s.logger)
	if !isNotification {
		lifecycle = s.inbound.register(id, cancel)
	}

	resultCh := s.dispatcher.dispatch(reqCtx, req)

	s.scheduler.Schedule(func() {
		defer cancel()
		_ = lifecycle.Transition(reqCtx, eventRun, nil)
		result := <-resultCh
		_ = lifecycle.Transition(reqCtx, eventComplete, nil)
		if !isNotification {
			s.inbound.forget(id)
		}

		if isNotification {
			if result.err != nil {
				s.logger.Warn("notification target returned error", "method", req.Method, "error", result.err)
			}
			return
		}

		if result.err != nil {
			wire := rpcerr.ToWireError(result.err)
			s.writeError(id, wire)
			return
		}

		encoded, err := json.Marshal(result.value)
		if err != nil {
			s.writeError(id, &rpcerr.WireError{Code: rpcerr.CodeInternalError, Message: rpcerr.UserFacingMessage(rpcerr.CodeInternalError)})
			return
		}
		s.writeResult(id, encoded)
	})
}

func (s *Session) handleCancelRequest(params []byte) {
	var p cancelRequestParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.logger.Warn("malformed $/cancelRequest params", "error", err)
		return
	}
	if s.inbound.requestCancel(p.ID) && s.telemetry != nil {
		s.telemetry.RecordCancelled()
	}
}

func (s *Session) handleShutdownRequest(ctx context.Context, id ID, isNotification bool) {
	if !isNotification {
		s.writeResult(id, []byte(`true`))
	}
	s.scheduler.Schedule(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.Disconnect(shutdownCtx, nil)
	})
}

// Invoke sends a call and blocks until the peer replies, ctx is cancelled,
// or the session disconnects. result, if non-nil, receives the decoded
// result value.
func (s *Session) Invoke(ctx context.Context, method string, params interface{}, result interface{}) error {
	id := NewNumberID(atomic.AddUint64(&s.nextID, 1))

	encodedParams, err := encodeParams(params)
	if err != nil {
		return rpcerr.Wrap(err, "streamrpc: encoding invoke params")
	}

	call := newPendingCall(id, method)
	s.pending.add(call)

	if err := s.writeRequest(id, method, encodedParams); err != nil {
		s.pending.remove(id)
		return err
	}

	select {
	case <-ctx.Done():
		s.pending.remove(id)
		s.sendCancelNotification(id)
		return rpcerr.WithDetails(ctx.Err(), rpcerr.CategoryCancelled, rpcerr.Code(s.cfg.CancelledErrorCode), nil)
	case outcome := <-call.resultCh:
		if outcome.err != nil {
			return outcome.err
		}
		if result != nil && outcome.value != nil {
			if err := json.Unmarshal(outcome.value, result); err != nil {
				return rpcerr.Wrap(err, "streamrpc: decoding invoke result")
			}
		}
		return nil
	}
}

// Notify sends a one-way request with no ID and no outstanding-request
// table entry: the peer is expected never to reply.
func (s *Session) Notify(ctx context.Context, method string, params interface{}) error {
	encodedParams, err := encodeParams(params)
	if err != nil {
		return rpcerr.Wrap(err, "streamrpc: encoding notify params")
	}
	return s.writeRequest(NullID, method, encodedParams)
}

func (s *Session) sendCancelNotification(id ID) {
	params, _ := json.Marshal(cancelRequestParams{ID: id})
	_ = s.writeRequest(NullID, MethodCancelRequest, params)
}

func encodeParams(params interface{}) ([]byte, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}

func (s *Session) writeRequest(id ID, method string, params []byte) error {
	n := &formatter.Neutral{Method: method}
	if !id.IsNull() {
		n.ID = idToRawID(id)
	}
	if params != nil {
		n.HasParams = true
		n.Params = params
	}
	return s.write(n)
}

func (s *Session) writeResult(id ID, value []byte) {
	n := &formatter.Neutral{ID: idToRawID(id), HasResult: true, Result: value}
	if err := s.write(n); err != nil {
		s.logger.Error("failed to write result", "id", id.String(), "error", err)
	}
}

func (s *Session) writeError(id ID, wire *rpcerr.WireError) {
	n := &formatter.Neutral{ID: idToRawID(id), Error: &formatter.NeutralError{Code: int(wire.Code), Message: wire.Message}}
	if wire.Data != nil {
		if data, err := json.Marshal(wire.Data); err == nil {
			n.Error.Data = data
		}
	}
	if err := s.write(n); err != nil {
		s.logger.Error("failed to write error response", "id", id.String(), "error", err)
	}
}

// write serializes n and hands it to the framing handler under the
// session's single write mutex, so concurrent writers never interleave
// bytes on the underlying transport.
func (s *Session) write(n *formatter.Neutral) error {
	var buf bytes.Buffer
	if err := s.formatter.Encode(&buf, n); err != nil {
		return rpcerr.Wrap(err, "streamrpc: encoding outbound message")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.telemetry != nil {
		s.telemetry.RecordBytes(0, uint64(buf.Len()))
	}
	if err := s.handler.WriteMessage(buf.Bytes()); err != nil {
		return rpcerr.WithDetails(
			rpcerr.Wrap(err, "streamrpc: writing message"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	return nil
}

func rawIDToID(raw *formatter.RawID) ID {
	if raw == nil {
		return NullID
	}
	if raw.IsString {
		return NewStringID(raw.Str)
	}
	return NewNumberID(raw.Num)
}

func idToRawID(id ID) *formatter.RawID {
	if id.IsNull() {
		return nil
	}
	if id.kind == idKindString {
		return &formatter.RawID{IsString: true, Str: id.str}
	}
	return &formatter.RawID{Num: id.num}
}
