package kestrel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayLengthTruncationFallsThrough(t *testing.T) {
	e := New()
	proto := e.NewArrayWithPrototype(e.ArrayPrototype)
	proto.SetStr("5", NewString("from proto"), true)
	a := e.NewArrayWithPrototype(proto)
	for i := uint32(0); i < 10; i++ {
		a.SetElement(i, intToValue(int64(i)), true)
	}
	require.Equal(t, Dense, a.ArrayStore().Mode())
	require.True(t, a.SetLength(3, true))

	assert.Equal(t, uint32(3), a.Length())
	assert.False(t, a.HasOwnProperty(IdxKey(5)))
	assert.Nil(t, a.GetOwn(IdxKey(5)))
	assert.Equal(t, "from proto", a.GetElement(5).String())
	assert.Equal(t, "from proto", a.Get(StrKey("5")).String())
	assert.Nil(t, a.GetElement(6))
}

func TestArrayLengthProperty(t *testing.T) {
	e := New()
	a := e.NewArray(intToValue(1), intToValue(2))
	d, ok := a.GetOwnPropertyDescriptor(lengthKey)
	require.True(t, ok)
	assert.True(t, d.Value.SameAs(intToValue(2)))
	assert.Equal(t, FLAG_TRUE, d.Writable)
	assert.Equal(t, FLAG_FALSE, d.Enumerable)
	assert.Equal(t, FLAG_FALSE, d.Configurable)

	assert.False(t, a.DeleteStr("length", false))
	assert.True(t, a.SetStr("length", NewString("5"), true))
	assert.Equal(t, uint32(5), a.Length())

	for _, bad := range []Value{intToValue(-1), floatToValue(1.5), floatToValue(4294967296), NewString("x")} {
		assert.False(t, a.SetStr("length", bad, false), "length = %v", bad)
		assert.ErrorIs(t, e.Try(func() { a.SetStr("length", bad, true) }), ErrInvalidLength)
	}
	assert.Equal(t, uint32(5), a.Length())
}

func TestArrayReadOnlyLength(t *testing.T) {
	e := New()
	a := e.NewArray(intToValue(1), intToValue(2), intToValue(3))
	require.True(t, a.DefineProperty(lengthKey, PropertyDescriptor{Writable: FLAG_FALSE}, true))
	assert.False(t, a.SetLength(1, false))
	assert.False(t, a.SetElement(3, intToValue(4), false))
	assert.ErrorIs(t, e.Try(func() { a.Push(intToValue(4)) }), ErrReadOnly)
	assert.True(t, a.SetElement(0, intToValue(9), false))
	assert.Equal(t, uint32(3), a.Length())
	assert.False(t, a.DefineProperty(lengthKey, PropertyDescriptor{Value: intToValue(1)}, false))
	assert.True(t, a.DefineProperty(lengthKey, PropertyDescriptor{Value: intToValue(3)}, false))
}

func TestArrayTruncationStopsAtNonConfigurable(t *testing.T) {
	e := New()
	a := e.NewArray(intToValue(0), intToValue(1), intToValue(2), intToValue(3))
	a.Set(IdxKey(100000), intToValue(5), true)
	require.Equal(t, Sparse, a.ArrayStore().Mode())
	require.True(t, a.DefineProperty(IdxKey(2), PropertyDescriptor{Value: intToValue(42), Configurable: FLAG_FALSE, Writable: FLAG_FALSE}, true))

	err := e.Try(func() {
		a.DefineProperty(lengthKey, PropertyDescriptor{Value: intToValue(0), Writable: FLAG_FALSE}, true)
	})
	assert.ErrorIs(t, err, ErrNonConfigurable)
	assert.Equal(t, uint32(3), a.Length())
	d, _ := a.GetOwnPropertyDescriptor(lengthKey)
	assert.Equal(t, FLAG_FALSE, d.Writable)
	assert.True(t, a.GetElement(2).SameAs(intToValue(42)))
}

func TestArrayPushPop(t *testing.T) {
	e := New()
	a := e.NewArray()
	assert.Nil(t, a.Pop())
	assert.Equal(t, uint32(2), a.Push(NewString("a"), NewString("b")))
	assert.Equal(t, uint32(3), a.Push(intToValue(3)))
	assert.True(t, a.Pop().SameAs(intToValue(3)))
	assert.Equal(t, "b", a.Pop().String())
	assert.Equal(t, uint32(1), a.Length())

	a.SetLength(3, true)
	assert.True(t, IsUndefined(a.Pop()), "popping a hole")
	assert.Equal(t, uint32(2), a.Length())
}

func TestArrayLikePushPop(t *testing.T) {
	e := New()
	o := e.NewObject()
	assert.Equal(t, uint32(0), o.Length())
	assert.Equal(t, uint32(1), o.Push(NewString("x")))
	assert.Equal(t, "x", o.GetElement(0).String())
	assert.True(t, o.GetStr("length").SameAs(intToValue(1)))
	assert.Equal(t, "x", o.Pop().String())
	assert.False(t, o.HasOwnProperty(IdxKey(0)))
	assert.Equal(t, uint32(0), o.Length())
}

func TestArrayPushPastMaxIndex(t *testing.T) {
	e := New()
	a := e.NewArray()
	a.SetLength(MaxIndex, true)
	assert.Equal(t, uint32(maxLength), a.Push(intToValue(1)))
	assert.ErrorIs(t, e.Try(func() { a.Push(intToValue(2)) }), ErrInvalidLength)
}

func TestArrayElementAttributes(t *testing.T) {
	e := New()
	a := e.NewArray(intToValue(1), intToValue(2))
	require.True(t, a.DefineProperty(IdxKey(1), PropertyDescriptor{Writable: FLAG_FALSE}, true))
	assert.False(t, a.SetElement(1, intToValue(5), false))
	assert.True(t, a.GetElement(1).SameAs(intToValue(2)))
	assert.True(t, a.DeleteElement(1, false))

	getter := e.NewFunction("get", 0, func(call FunctionCall) Value {
		return call.This.(*Object).GetStr("length")
	})
	a.DefineAccessorProperty(IdxKey(5), getter, nil, FLAG_TRUE, FLAG_TRUE)
	assert.Equal(t, uint32(6), a.Length())
	assert.True(t, a.GetElement(5).SameAs(intToValue(6)))
}

func TestArrayOwnKeys(t *testing.T) {
	e := New()
	a := e.NewArray(intToValue(1))
	a.SetStr("name", NewString("x"), true)
	a.SetElement(10, intToValue(1), true)
	sym := NewSymbol("s")
	a.Set(SymKey(sym), intToValue(1), true)
	assert.Equal(t, []string{"0", "10", "length", "name", "Symbol(s)"}, keyStrings(a.OwnKeys()))
	assert.Equal(t, []string{"0", "10", "name"}, keyStrings(a.EnumerateKeys()))
	assert.Equal(t, []interface{}{int64(1), nil, nil, nil, nil, nil, nil, nil, nil, nil, int64(1)}, a.Export())
}

func TestArrayFreeze(t *testing.T) {
	e := New()
	a := e.NewArray(intToValue(1), intToValue(2))
	require.True(t, a.Freeze())
	assert.True(t, a.IsFrozen())
	assert.False(t, a.SetElement(0, intToValue(5), false))
	assert.False(t, a.SetElement(2, intToValue(5), false))
	assert.False(t, a.SetLength(0, false))
	assert.Equal(t, uint32(2), a.Length())
}

func TestArrayPromoteHook(t *testing.T) {
	h := &recordingHook{}
	e := New(WithHook(h))
	a := e.NewArray()
	a.SetElement(0, intToValue(0), true)
	a.SetElement(1<<20, intToValue(1), true)
	require.Len(t, h.promotions, 1)
	assert.Equal(t, [2]uint32{1, 1 << 20}, h.promotions[0])
}

func TestIndexParsing(t *testing.T) {
	tests := []struct {
		key   string
		idx   uint32
		valid bool
	}{
		{"0", 0, true},
		{"01", 0, false},
		{"00", 0, false},
		{"7", 7, true},
		{"4294967294", 4294967294, true},
		{"4294967295", 0, false},
		{"99999999999", 0, false},
		{"", 0, false},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"1e3", 0, false},
		{" 1", 0, false},
	}
	for _, tt := range tests {
		idx, ok := ParseIndex(tt.key)
		if ok != tt.valid || idx != tt.idx {
			t.Errorf("ParseIndex(%q) = %d, %v; want %d, %v", tt.key, idx, ok, tt.idx, tt.valid)
		}
	}
}

func TestIndexKeysOnArrays(t *testing.T) {
	e := New()
	a := e.NewArray()
	a.SetStr("01", intToValue(1), true)
	a.SetStr("4294967295", intToValue(2), true)
	assert.Equal(t, uint32(0), a.Length())
	a.SetStr("4294967294", intToValue(3), true)
	assert.Equal(t, uint32(maxLength), a.Length())
	assert.Equal(t, []string{"4294967294", "length", "01", "4294967295"}, keyStrings(a.OwnKeys()))
}

func TestArrayExportAccessorElement(t *testing.T) {
	e := New()
	a := e.NewArray(intToValue(1))
	getter := e.NewFunction("get", 0, func(call FunctionCall) Value {
		return call.This.(*Object).GetStr("length")
	})
	a.DefineAccessorProperty(IdxKey(2), getter, nil, FLAG_TRUE, FLAG_TRUE)
	assert.Equal(t, []interface{}{int64(1), nil, int64(3)}, a.Export())
}

func TestArrayPrototypeIsArray(t *testing.T) {
	e := New()
	p := e.ArrayPrototype
	assert.True(t, p.IsArray())
	assert.Equal(t, "Array", p.ClassName())
	assert.Equal(t, uint32(0), p.Length())
	assert.Same(t, e.ObjectPrototype, p.GetPrototype())

	a := e.NewArray()
	assert.Same(t, p, a.GetPrototype())
	o := e.NewObjectWithPrototype(p)
	assert.True(t, o.GetStr("length").SameAs(intToValue(0)), "length is inherited from the array prototype")
	assert.False(t, o.HasOwnProperty(lengthKey))
}
