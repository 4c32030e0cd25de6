// file: pkg/streamrpc/dispatcher.go
package streamrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/dkoosis/streamrpc/internal/logging"
	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"github.com/dkoosis/streamrpc/internal/telemetry"
	"github.com/dkoosis/streamrpc/internal/validation"
)

// dispatcher resolves an inbound Request to a registered target and runs it
// under a bounded concurrency gate: each dispatch gets its own timeout-boxed
// goroutine with panic recovery, admitted through a counting semaphore
// instead of running unbounded.
type dispatcher struct {
	targets   *targetMap
	scheduler Scheduler
	checker   validation.ParamsChecker
	telemetry *telemetry.Collector
	logger    logging.Logger

	gate           chan struct{}
	requestTimeout time.Duration
}

func newDispatcher(targets *targetMap, scheduler Scheduler, checker validation.ParamsChecker, tel *telemetry.Collector, logger logging.Logger, maxConcurrent int, requestTimeout time.Duration) *dispatcher {
	if scheduler == nil {
		scheduler = GoScheduler{}
	}
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &dispatcher{
		targets:        targets,
		scheduler:      scheduler,
		checker:        checker,
		telemetry:      tel,
		logger:         logger.WithField("component", "dispatcher"),
		gate:           make(chan struct{}, maxConcurrent),
		requestTimeout: requestTimeout,
	}
}

// dispatchResult is delivered once a scheduled invocation finishes, whether
// by returning, panicking, or having its context cancelled.
type dispatchResult struct {
	value interface{}
	err   error
}

// dispatch resolves req against the target map and schedules it, returning
// a channel that receives exactly one dispatchResult. If no target
// resolves, or params fail schema validation, the channel receives the
// rejection synchronously without ever acquiring the gate. Otherwise
// dispatch blocks until a gate slot is free before scheduling, so a read
// loop calling it stops consuming frames while the gate is full.
func (d *dispatcher) dispatch(ctx context.Context, req *Request) <-chan dispatchResult {
	resultCh := make(chan dispatchResult, 1)
	methodLogger := d.logger.WithField("method", req.Method)

	entry, ok := d.targets.resolve(req.Method, len(req.Params) > 0)
	if !ok {
		methodLogger.Warn("method not found")
		d.recordRejected()
		resultCh <- dispatchResult{err: rpcerr.WithDetails(
			rpcerr.Newf("method %q not found", req.Method),
			rpcerr.CategoryDispatch, rpcerr.CodeMethodNotFound,
			map[string]interface{}{"method": req.Method},
		)}
		return resultCh
	}

	if d.checker != nil {
		if err := d.checker.CheckParams(req.Method, req.Params); err != nil {
			methodLogger.Warn("params failed schema validation", "error", fmt.Sprintf("%+v", err))
			d.recordRejected()
			resultCh <- dispatchResult{err: err}
			return resultCh
		}
	}

	if d.telemetry != nil {
		d.telemetry.IncQueueDepth()
	}

	d.gate <- struct{}{}
	d.scheduler.Schedule(func() {
		defer func() { <-d.gate }()

		start := time.Now()
		if d.telemetry != nil {
			d.telemetry.BeginDispatch()
		}

		runCtx := ctx
		var cancel context.CancelFunc
		if d.requestTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, d.requestTimeout)
			defer cancel()
		}

		methodLogger.Debug("invoking target")
		value, err := d.invoke(runCtx, entry, req, methodLogger)

		if d.telemetry != nil {
			d.telemetry.EndDispatch(req.Method, time.Since(start))
		}
		if err != nil && d.telemetry != nil {
			d.telemetry.RecordError("dispatcher", err.Error())
		}

		resultCh <- dispatchResult{value: value, err: err}
	})

	return resultCh
}

// invoke runs entry.fn, recovering from any panic it raises, and translating
// a timed-out context into a dedicated error so the caller can distinguish
// it from an ordinary target failure.
func (d *dispatcher) invoke(ctx context.Context, entry *targetEntry, req *Request, methodLogger logging.Logger) (value interface{}, err error) {
	done := make(chan struct{})
	var result interface{}
	var runErr error

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				methodLogger.Error("panic recovered during target invocation", "panic", r)
				runErr = rpcerr.WithDetails(
					rpcerr.Newf("panic recovered invoking method %q: %v", req.Method, r),
					rpcerr.CategoryTarget, rpcerr.CodeInvocationError,
					map[string]interface{}{"method": req.Method},
				)
			}
		}()
		result, runErr = entry.fn(ctx, req.Params)
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, rpcerr.WithDetails(
				rpcerr.Newf("method %q exceeded its request timeout", req.Method),
				rpcerr.CategoryTarget, rpcerr.CodeInternalError,
				map[string]interface{}{"method": req.Method},
			)
		}
		<-done
		if runErr != nil {
			return nil, runErr
		}
		return nil, rpcerr.WithDetails(
			rpcerr.ErrCancelled, rpcerr.CategoryCancelled, rpcerr.CodeRequestCancelled,
			map[string]interface{}{"method": req.Method},
		)
	case <-done:
		return result, runErr
	}
}

func (d *dispatcher) recordRejected() {
	if d.telemetry != nil {
		d.telemetry.RecordRejected()
	}
}
