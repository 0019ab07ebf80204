package kestrel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFunction(t *testing.T) {
	e := New()
	f := e.NewFunction("add", 2, func(call FunctionCall) Value {
		return intToValue(int64(call.Argument(0).(valueInt) + call.Argument(1).(valueInt)))
	})
	assert.Equal(t, "Function", f.ClassName())
	assert.True(t, IsCallable(f))
	assert.False(t, IsCallable(e.NewObject()))
	assert.False(t, IsCallable(intToValue(1)))
	assert.Same(t, e.FunctionPrototype, f.GetPrototype())

	assert.True(t, f.Call(nil, intToValue(1), intToValue(2)).SameAs(intToValue(3)))

	d, ok := f.GetOwnPropertyDescriptor(StrKey("name"))
	require.True(t, ok)
	assert.Equal(t, "add", d.Value.String())
	assert.Equal(t, FLAG_FALSE, d.Writable)
	assert.Equal(t, FLAG_FALSE, d.Enumerable)
	assert.Equal(t, FLAG_TRUE, d.Configurable)
	assert.True(t, f.GetStr("length").SameAs(intToValue(2)))
	assert.Empty(t, f.EnumerateKeys())
}

func TestFunctionCallDefaults(t *testing.T) {
	e := New()
	var got FunctionCall
	f := e.NewFunction("f", 0, func(call FunctionCall) Value {
		got = call
		return nil
	})
	f.Call(nil)
	assert.True(t, IsUndefined(got.This))
	assert.True(t, IsUndefined(got.Argument(3)))
}

func TestCallNotCallable(t *testing.T) {
	e := New()
	assert.Panics(t, func() {
		e.NewObject().Call(nil)
	})
}
