// file: pkg/streamrpc/id.go
package streamrpc

import (
	"encoding/json"
	"strconv"
)

type idKind int

const (
	idKindNull idKind = iota
	idKindNumber
	idKindString
)

// ID is a JSON-RPC request identifier: a number, a string, or null. Go has
// no built-in sum type for this, so ID is a small tagged value rather than
// an interface{}, keeping it comparable and usable as a map key.
type ID struct {
	kind idKind
	num  uint64
	str  string
}

// NullID is the absent/null identifier used by notifications.
var NullID = ID{kind: idKindNull}

// NewNumberID builds a numeric request ID.
func NewNumberID(n uint64) ID { return ID{kind: idKindNumber, num: n} }

// NewStringID builds a string request ID.
func NewStringID(s string) ID { return ID{kind: idKindString, str: s} }

// IsNull reports whether id is the null/absent identifier.
func (id ID) IsNull() bool { return id.kind == idKindNull }

// String renders id for logging and error messages.
func (id ID) String() string {
	switch id.kind {
	case idKindNumber:
		return strconv.FormatUint(id.num, 10)
	case idKindString:
		return strconv.Quote(id.str)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idKindNumber:
		return json.Marshal(id.num)
	case idKindString:
		return json.Marshal(id.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler, accepting a JSON number,
// string, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = NullID
		return nil
	}
	var num uint64
	if err := json.Unmarshal(data, &num); err == nil {
		*id = NewNumberID(num)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*id = NewStringID(str)
	return nil
}
