// file: internal/validation/validator_test.go
package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoParamsSchema() MethodSchema {
	return MethodSchema{
		Method: "echo",
		Schema: json.RawMessage(`{
			"$schema": "https://json-schema.org/draft/2020-12/schema",
			"type": "object",
			"properties": {"text": {"type": "string"}},
			"required": ["text"],
			"additionalProperties": false
		}`),
	}
}

func TestValidatorAcceptsConformingParams(t *testing.T) {
	v := New(nil)
	require.NoError(t, v.Load([]MethodSchema{echoParamsSchema()}))

	assert.True(t, v.IsInitialized())
	assert.True(t, v.HasSchema("echo"))
	assert.NoError(t, v.Validate("echo", []byte(`{"text":"hi"}`)))
}

func TestValidatorRejectsNonConformingParams(t *testing.T) {
	v := New(nil)
	require.NoError(t, v.Load([]MethodSchema{echoParamsSchema()}))

	err := v.Validate("echo", []byte(`{"text": 5}`))
	assert.Error(t, err)
}

func TestValidatorPassesUnregisteredMethodsThrough(t *testing.T) {
	v := New(nil)
	require.NoError(t, v.Load([]MethodSchema{echoParamsSchema()}))

	assert.False(t, v.HasSchema("other.method"))
	assert.NoError(t, v.Validate("other.method", []byte(`{"anything": true}`)))
}

func TestValidatorRejectsMalformedJSON(t *testing.T) {
	v := New(nil)
	require.NoError(t, v.Load([]MethodSchema{echoParamsSchema()}))

	err := v.Validate("echo", []byte(`{not json`))
	assert.Error(t, err)
}

func TestDecoratorNoopsWithoutValidator(t *testing.T) {
	d := NewDecorator(nil)
	assert.NoError(t, d.CheckParams("echo", []byte(`{"text": 5}`)))
}

func TestDecoratorDelegatesToValidator(t *testing.T) {
	v := New(nil)
	require.NoError(t, v.Load([]MethodSchema{echoParamsSchema()}))
	d := NewDecorator(v)

	assert.NoError(t, d.CheckParams("echo", []byte(`{"text":"hi"}`)))
	assert.Error(t, d.CheckParams("echo", []byte(`{"text": 5}`)))
}
