// Package validation compiles JSON Schema documents and checks RPC params
// and results against them, so a Dispatcher can reject malformed arguments
// before they reach a registered target.
package validation

// file: internal/validation/validator.go

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/dkoosis/streamrpc/internal/logging"
	"github.com/dkoosis/streamrpc/internal/rpcerr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidatorInterface lets a Dispatcher check params against a per-method
// schema without depending on the jsonschema library directly.
type ValidatorInterface interface {
	// Validate checks data against the schema registered for method, returning
	// nil if no schema is registered for it.
	Validate(method string, data []byte) error
	// HasSchema reports whether a schema is registered for method.
	HasSchema(method string) bool
	// IsInitialized reports whether Load has completed successfully.
	IsInitialized() bool
}

// Validator compiles and caches per-method JSON Schemas, one compiled schema
// per registered method name.
type Validator struct {
	compiler *jsonschema.Compiler

	mu          sync.RWMutex
	schemas     map[string]*jsonschema.Schema
	initialized bool

	logger logging.Logger
}

var _ ValidatorInterface = (*Validator)(nil)

// New creates a Validator using the JSON Schema 2020-12 draft, with format
// and content assertions enabled. It is not ready for use until Load runs.
func New(logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	compiler.AssertContent = true

	return &Validator{
		compiler: compiler,
		schemas:  make(map[string]*jsonschema.Schema),
		logger:   logger.WithField("component", "validation"),
	}
}

// MethodSchema pairs an RPC method name with the raw JSON Schema document
// its params must satisfy.
type MethodSchema struct {
	Method string
	Schema json.RawMessage
}

// Load compiles every schema in schemas and caches it by method name. A
// compile failure in any one schema aborts the whole load, since a partially
// validating engine is worse than one that fails fast at startup.
func (v *Validator) Load(schemas []MethodSchema) error {
	start := time.Now()
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, ms := range schemas {
		resourceName := "method:" + ms.Method
		if err := v.compiler.AddResource(resourceName, bytes.NewReader(ms.Schema)); err != nil {
			return rpcerr.WithDetails(
				rpcerr.Wrapf(err, "adding schema resource for method %q", ms.Method),
				rpcerr.CategoryProtocol, rpcerr.CodeInternalError,
				map[string]interface{}{"method": ms.Method},
			)
		}
		compiled, err := v.compiler.Compile(resourceName)
		if err != nil {
			return rpcerr.WithDetails(
				rpcerr.Wrapf(err, "compiling schema for method %q", ms.Method),
				rpcerr.CategoryProtocol, rpcerr.CodeInternalError,
				map[string]interface{}{"method": ms.Method},
			)
		}
		v.schemas[ms.Method] = compiled
	}

	v.initialized = true
	v.logger.Info("loaded method schemas", "count", len(schemas), "elapsed", time.Since(start))
	return nil
}

// HasSchema implements ValidatorInterface.
func (v *Validator) HasSchema(method string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.schemas[method]
	return ok
}

// IsInitialized implements ValidatorInterface.
func (v *Validator) IsInitialized() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.initialized
}

// Validate implements ValidatorInterface. If no schema is registered for
// method, data passes unconditionally: schemas are opt-in per target.
func (v *Validator) Validate(method string, data []byte) error {
	v.mu.RLock()
	compiled, ok := v.schemas[method]
	v.mu.RUnlock()
	if !ok {
		return nil
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return rpcerr.WithDetails(
			rpcerr.Wrapf(err, "decoding params for method %q prior to schema validation", method),
			rpcerr.CategoryProtocol, rpcerr.CodeInvalidParams,
			map[string]interface{}{"method": method},
		)
	}

	if err := compiled.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		props := map[string]interface{}{"method": method}
		if ok {
			props["schema_pointer"] = ve.InstanceLocation
		}
		return rpcerr.WithDetails(
			rpcerr.Wrapf(err, "params for method %q failed schema validation", method),
			rpcerr.CategoryDispatch, rpcerr.CodeInvalidParams, props,
		)
	}
	return nil
}
