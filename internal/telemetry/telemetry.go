// Package telemetry collects in-process counters and gauges describing a
// Session's dispatch activity, the way a host process would surface a
// health or metrics endpoint without pulling in a full metrics backend.
// file: internal/telemetry/telemetry.go
package telemetry

import (
	"runtime"
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of a Collector's counters and gauges.
type Snapshot struct {
	StartTime     time.Time     `json:"startTime"`
	Uptime        time.Duration `json:"uptime"`
	NumGoroutines int           `json:"numGoroutines"`

	InFlightRequests int `json:"inFlightRequests"`
	QueueDepth       int `json:"queueDepth"`

	DispatchedTotal int `json:"dispatchedTotal"`
	RejectedTotal   int `json:"rejectedTotal"`
	CancelledTotal  int `json:"cancelledTotal"`

	BytesRead    uint64 `json:"bytesRead"`
	BytesWritten uint64 `json:"bytesWritten"`

	DispatchLatencies map[string]int `json:"dispatchLatencies"` // method -> average ms.

	LastErrors []ErrorInfo `json:"lastErrors,omitempty"`
}

// ErrorInfo records an engine-level failure for surfacing on a diagnostics
// endpoint, independent of how the error was logged.
type ErrorInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Collector accumulates a Session's dispatch telemetry. One Collector is
// shared by every request a Session handles; Collector itself makes no
// assumption about which Session owns it.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time

	inFlight  int
	queued    int
	dispatched int
	rejected  int
	cancelled int

	bytesRead    uint64
	bytesWritten uint64

	latencies map[string]int

	errorBuffer []ErrorInfo
	bufferSize  int
}

// NewCollector creates a Collector retaining up to errorBufferSize of the
// most recent errors.
func NewCollector(errorBufferSize int) *Collector {
	return &Collector{
		startTime:   time.Now(),
		latencies:   make(map[string]int),
		errorBuffer: make([]ErrorInfo, 0, errorBufferSize),
		bufferSize:  errorBufferSize,
	}
}

// Snapshot returns a copy of the collector's current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	latencies := make(map[string]int, len(c.latencies))
	for k, v := range c.latencies {
		latencies[k] = v
	}

	var errs []ErrorInfo
	if len(c.errorBuffer) > 0 {
		errs = make([]ErrorInfo, len(c.errorBuffer))
		copy(errs, c.errorBuffer)
	}

	return Snapshot{
		StartTime:         c.startTime,
		Uptime:            time.Since(c.startTime),
		NumGoroutines:     runtime.NumGoroutine(),
		InFlightRequests:  c.inFlight,
		QueueDepth:        c.queued,
		DispatchedTotal:   c.dispatched,
		RejectedTotal:     c.rejected,
		CancelledTotal:    c.cancelled,
		BytesRead:         c.bytesRead,
		BytesWritten:      c.bytesWritten,
		DispatchLatencies: latencies,
		LastErrors:        errs,
	}
}

// BeginDispatch marks a request as having acquired the dispatcher's
// concurrency gate, moving it from queued to in-flight.
func (c *Collector) BeginDispatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
	c.dispatched++
	if c.queued > 0 {
		c.queued--
	}
}

// EndDispatch records a completed dispatch's latency, keyed by method, as a
// running average: each new sample is averaged with the previous value.
func (c *Collector) EndDispatch(method string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
	ms := int(latency.Milliseconds())
	if existing, ok := c.latencies[method]; ok {
		c.latencies[method] = (existing + ms) / 2
	} else {
		c.latencies[method] = ms
	}
}

// IncQueueDepth reflects a request waiting on the dispatcher's gate before
// it has acquired a slot.
func (c *Collector) IncQueueDepth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued++
}

// RecordRejected counts a request rejected before dispatch (bad method or
// failed schema validation).
func (c *Collector) RecordRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected++
}

// RecordCancelled counts a request that honored a $/cancelRequest.
func (c *Collector) RecordCancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled++
}

// RecordBytes accumulates framing-level I/O counts.
func (c *Collector) RecordBytes(read, written uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesRead += read
	c.bytesWritten += written
}

// RecordError appends to the bounded, oldest-first error buffer, dropping
// the oldest entry once the buffer is full.
func (c *Collector) RecordError(component, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := ErrorInfo{Timestamp: time.Now(), Component: component, Message: message}
	if len(c.errorBuffer) >= c.bufferSize {
		c.errorBuffer = c.errorBuffer[1:]
	}
	c.errorBuffer = append(c.errorBuffer, info)
}
