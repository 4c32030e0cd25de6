// file: pkg/streamrpc/target.go
package streamrpc

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/dkoosis/streamrpc/internal/rpcerr"
)

// TargetFunc is a single RPC method implementation operating directly on
// formatter-encoded params. Most targets are registered this way via
// AddLocalTargetFunc; AddLocalTarget builds TargetFuncs around a struct's
// exported methods via reflection instead.
type TargetFunc func(ctx context.Context, params []byte) (interface{}, error)

// NameTransform maps a Go method name to the wire method name used when
// registering a struct's methods with AddLocalTarget.
type NameTransform func(methodName string) string

// Identity returns methodName unchanged.
func Identity(methodName string) string { return methodName }

// CamelCase lowercases the first rune of methodName, the common convention
// for mapping exported Go method names (Echo) to JSON-RPC method names
// (echo).
func CamelCase(methodName string) string {
	if methodName == "" {
		return methodName
	}
	r, size := utf8.DecodeRuneInString(methodName)
	return string(unicode.ToLower(r)) + methodName[size:]
}

// FixedPrefix returns a NameTransform that joins prefix and the
// CamelCase-transformed method name with a dot, e.g. FixedPrefix("math")
// maps "Add" to "math.add".
func FixedPrefix(prefix string) NameTransform {
	return func(methodName string) string {
		return prefix + "." + CamelCase(methodName)
	}
}

// targetEntry is one overload candidate for a registered method name.
// takesParams distinguishes a zero-argument overload from one that expects
// a params object; dispatch picks among a method's entries based on
// whether the incoming request carried params.
type targetEntry struct {
	fn          TargetFunc
	takesParams bool
}

// targetMap holds every registered local target, keyed by wire method name.
// A name may have up to two entries: one that ignores params and one that
// requires them.
type targetMap struct {
	mu      sync.RWMutex
	entries map[string][]*targetEntry
}

func newTargetMap() *targetMap {
	return &targetMap{entries: make(map[string][]*targetEntry)}
}

func (m *targetMap) register(name string, entry *targetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.entries[name] {
		if existing.takesParams == entry.takesParams {
			return rpcerr.Newf("streamrpc: method %q already has a registered overload for takesParams=%v", name, entry.takesParams)
		}
	}
	m.entries[name] = append(m.entries[name], entry)
	return nil
}

// resolve picks the overload matching hasParams, falling back to the sole
// registered entry if only one exists regardless of hasParams (a target
// that always ignores its params, or always requires them loosely).
func (m *targetMap) resolve(name string, hasParams bool) (*targetEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates, ok := m.entries[name]
	if !ok || len(candidates) == 0 {
		return nil, false
	}
	for _, c := range candidates {
		if c.takesParams == hasParams {
			return c, true
		}
	}
	return candidates[0], true
}

func (m *targetMap) has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[name]
	return ok
}

// AddLocalTargetFunc registers a single raw-params target function under
// name. It is an error to register the same name with the same
// params-arity twice.
func (s *Session) AddLocalTargetFunc(name string, takesParams bool, fn TargetFunc) error {
	if name == "" || fn == nil {
		return rpcerr.New("streamrpc: AddLocalTargetFunc requires a non-empty name and non-nil fn")
	}
	return s.targets.register(name, &targetEntry{fn: fn, takesParams: takesParams})
}

// AddLocalTarget registers every exported method of obj matching one of the
// supported signatures:
//
//	func(ctx context.Context) (R, error)
//	func(ctx context.Context, params P) (R, error)
//
// under transform(methodName), generalizing the dynamic-proxy method
// discovery a reflection-based RPC client would otherwise require (the
// client-generator itself is out of scope; only this server-side
// registration half is implemented).
func (s *Session) AddLocalTarget(obj interface{}, transform NameTransform) error {
	if obj == nil {
		return rpcerr.New("streamrpc: AddLocalTarget requires a non-nil obj")
	}
	if transform == nil {
		transform = Identity
	}

	v := reflect.ValueOf(obj)
	t := v.Type()

	registered := 0
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		entry, paramsType, ok := buildTargetEntry(v.Method(i))
		if !ok {
			continue
		}
		wireName := transform(m.Name)
		if err := s.targets.register(wireName, entry); err != nil {
			return rpcerr.Wrapf(err, "registering method %q", m.Name)
		}
		_ = paramsType
		registered++
	}
	if registered == 0 {
		return rpcerr.Newf("streamrpc: AddLocalTarget found no methods on %T matching a supported signature", obj)
	}
	return nil
}

// buildTargetEntry inspects a bound method value and, if its signature
// matches one of the two supported shapes, returns a targetEntry that
// unmarshals raw params into a fresh value of the method's params type
// before invoking it via reflection.
func buildTargetEntry(method reflect.Value) (*targetEntry, reflect.Type, bool) {
	mt := method.Type()
	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	errType := reflect.TypeOf((*error)(nil)).Elem()

	if mt.NumOut() != 2 || !mt.Out(1).Implements(errType) {
		return nil, nil, false
	}

	switch mt.NumIn() {
	case 1:
		if !mt.In(0).Implements(ctxType) {
			return nil, nil, false
		}
		fn := func(ctx context.Context, _ []byte) (interface{}, error) {
			out := method.Call([]reflect.Value{reflect.ValueOf(ctx)})
			return extractResult(out)
		}
		return &targetEntry{fn: fn, takesParams: false}, nil, true

	case 2:
		if !mt.In(0).Implements(ctxType) {
			return nil, nil, false
		}
		paramsType := mt.In(1)
		fn := func(ctx context.Context, params []byte) (interface{}, error) {
			argPtr := reflect.New(paramsType)
			if len(params) > 0 {
				if err := json.Unmarshal(params, argPtr.Interface()); err != nil {
					return nil, rpcerr.WithDetails(
						rpcerr.Wrap(err, "unmarshalling params"),
						rpcerr.CategoryDispatch, rpcerr.CodeInvalidParams, nil,
					)
				}
			}
			out := method.Call([]reflect.Value{reflect.ValueOf(ctx), argPtr.Elem()})
			return extractResult(out)
		}
		return &targetEntry{fn: fn, takesParams: true}, paramsType, true

	default:
		return nil, nil, false
	}
}

func extractResult(out []reflect.Value) (interface{}, error) {
	errVal := out[1]
	if !errVal.IsNil() {
		return nil, errVal.Interface().(error)
	}
	return out[0].Interface(), nil
}
