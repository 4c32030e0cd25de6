// file: internal/validation/decorator.go
package validation

import "github.com/dkoosis/streamrpc/internal/rpcerr"

// ParamsChecker is the narrow surface a Formatter's encoded params need to
// satisfy schema validation: raw bytes plus the method they belong to.
type ParamsChecker interface {
	CheckParams(method string, raw []byte) error
}

// Decorator wraps a ValidatorInterface to present the ParamsChecker surface
// a dispatcher calls on every inbound request, independent of which wire
// formatter produced the raw bytes.
type Decorator struct {
	validator ValidatorInterface
}

var _ ParamsChecker = (*Decorator)(nil)

// NewDecorator wraps validator. A nil validator makes every check a no-op,
// so a Dispatcher can unconditionally hold a ParamsChecker even when no
// schemas were configured.
func NewDecorator(validator ValidatorInterface) *Decorator {
	return &Decorator{validator: validator}
}

// CheckParams implements ParamsChecker.
func (d *Decorator) CheckParams(method string, raw []byte) error {
	if d == nil || d.validator == nil || !d.validator.IsInitialized() {
		return nil
	}
	if !d.validator.HasSchema(method) {
		return nil
	}
	if err := d.validator.Validate(method, raw); err != nil {
		return rpcerr.Wrapf(err, "schema validation for method %q", method)
	}
	return nil
}
