// file: internal/rpcerr/errors.go
package rpcerr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors checked with errors.Is across the engine.
var (
	ErrNotYetListening = errors.New("session is not yet listening")
	ErrConnectionLost  = errors.New("connection lost")
	ErrDisposed        = errors.New("session disposed")
	ErrCancelled       = errors.New("invocation cancelled")
)

const (
	categoryDetailPrefix = "category:"
	codeDetailPrefix     = "code:"
	propertyDetailPrefix = "prop:"
)

// New creates a new error with a stack trace.
func New(message string) error { return errors.New(message) }

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }

// Wrap wraps cause with message, preserving the original error for errors.Is/As.
func Wrap(cause error, message string) error { return errors.Wrap(cause, message) }

// Wrapf wraps cause with a formatted message, preserving the original error.
func Wrapf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}

// WithDetails annotates err with a category, a JSON-RPC code, and optional
// structured properties, recoverable later via GetCategory/GetCode/GetProperties.
func WithDetails(err error, category Category, code Code, properties map[string]interface{}) error {
	if err == nil {
		return nil
	}
	err = errors.WithDetail(err, categoryDetailPrefix+string(category))
	err = errors.WithDetail(err, codeDetailPrefix+strconv.Itoa(int(code)))
	for k, v := range properties {
		err = errors.WithDetail(err, fmt.Sprintf("%s%s=%v", propertyDetailPrefix, k, v))
	}
	return err
}

// GetCategory extracts the category recorded by WithDetails, or "" if none.
func GetCategory(err error) Category {
	for _, d := range errors.GetAllDetails(err) {
		if rest, ok := strings.CutPrefix(d, categoryDetailPrefix); ok {
			return Category(rest)
		}
	}
	return ""
}

// GetCode extracts the JSON-RPC code recorded by WithDetails, defaulting to
// CodeInternalError when none was attached.
func GetCode(err error) Code {
	for _, d := range errors.GetAllDetails(err) {
		if rest, ok := strings.CutPrefix(d, codeDetailPrefix); ok {
			if n, convErr := strconv.Atoi(rest); convErr == nil {
				return Code(n)
			}
		}
	}
	return CodeInternalError
}

// GetProperties extracts the key/value properties recorded by WithDetails.
func GetProperties(err error) map[string]string {
	props := map[string]string{}
	for _, d := range errors.GetAllDetails(err) {
		rest, ok := strings.CutPrefix(d, propertyDetailPrefix)
		if !ok {
			continue
		}
		k, v, found := strings.Cut(rest, "=")
		if found {
			props[k] = v
		}
	}
	return props
}

// WireError is the sanitized, client-safe projection of an engine error onto
// the JSON-RPC error object.
type WireError struct {
	Code    Code
	Message string
	Data    interface{}
}

// ToWireError converts any error into a WireError suitable for sending to a
// peer. Invocation, method-not-found, invalid-params, invalid-request,
// parse and request-cancelled errors keep their own message; every other
// code, CodeInternalError included, gets the stable UserFacingMessage
// instead, so internal detail never crosses the wire.
func ToWireError(err error) *WireError {
	if err == nil {
		return nil
	}
	code := GetCode(err)
	we := &WireError{Code: code}
	switch code {
	case CodeInvocationError:
		we.Message = err.Error()
		we.Data = invocationData(err)
	case CodeMethodNotFound, CodeInvalidParams, CodeInvalidRequest, CodeParseError, CodeRequestCancelled:
		we.Message = err.Error()
	default:
		we.Message = UserFacingMessage(code)
	}
	return we
}

func invocationData(err error) map[string]interface{} {
	data := map[string]interface{}{"type": fmt.Sprintf("%T", err)}
	if props := GetProperties(err); len(props) > 0 {
		for k, v := range props {
			data[k] = v
		}
	}
	return data
}
