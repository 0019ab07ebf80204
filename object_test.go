package kestrel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectGetSetDelete(t *testing.T) {
	e := New()
	o := e.NewObject()
	if v := o.GetStr("x"); v != nil {
		t.Fatalf("expected missing, got %v", v)
	}
	if !o.SetStr("x", intToValue(1), true) {
		t.Fatal("set failed")
	}
	if v := o.GetStr("x"); !v.SameAs(intToValue(1)) {
		t.Fatalf("x = %v", v)
	}
	if !o.DeleteStr("x", true) {
		t.Fatal("delete failed")
	}
	if o.HasOwnProperty(StrKey("x")) {
		t.Fatal("x still present")
	}
	if !o.DeleteStr("x", true) {
		t.Fatal("deleting an absent key must succeed")
	}
	assert.Equal(t, 0, o.Shape().Len())
}

func TestDeleteKeepsSlotsAligned(t *testing.T) {
	e := New()
	o := e.NewObject()
	for i, n := range []string{"a", "b", "c", "d"} {
		o.SetStr(n, intToValue(int64(i)), true)
	}
	o.DeleteStr("b", true)
	o.SetStr("e", intToValue(4), true)
	for n, want := range map[string]int64{"a": 0, "c": 2, "d": 3, "e": 4} {
		if v := o.GetStr(n); !v.SameAs(intToValue(want)) {
			t.Fatalf("%s = %v, want %d", n, v, want)
		}
	}
	assert.Equal(t, []string{"a", "c", "d", "e"}, keyStrings(o.OwnKeys()))
}

func TestSetReadOnly(t *testing.T) {
	e := New()
	o := e.NewObject()
	o.DefineDataProperty(StrKey("ro"), intToValue(1), FLAG_FALSE, FLAG_TRUE, FLAG_TRUE)

	if o.SetStr("ro", intToValue(2), false) {
		t.Fatal("soft write to a read-only property succeeded")
	}
	err := e.Try(func() {
		o.SetStr("ro", intToValue(2), true)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadOnly))
	var pe *PropertyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "ro", pe.Key.String())
	assert.True(t, o.GetStr("ro").SameAs(intToValue(1)))
}

func TestSetInheritedReadOnly(t *testing.T) {
	e := New()
	proto := e.NewObject()
	proto.DefineDataProperty(StrKey("x"), intToValue(1), FLAG_FALSE, FLAG_TRUE, FLAG_TRUE)
	o := e.NewObjectWithPrototype(proto)
	if o.SetStr("x", intToValue(2), false) {
		t.Fatal("shadowing an inherited read-only property succeeded")
	}
	if o.HasOwnProperty(StrKey("x")) {
		t.Fatal("own property created")
	}
}

func TestSetNotExtensible(t *testing.T) {
	e := New()
	o := e.NewObject()
	o.SetStr("a", intToValue(1), true)
	o.PreventExtensions()
	assert.True(t, o.SetStr("a", intToValue(2), true))
	assert.False(t, o.SetStr("b", intToValue(2), false))
	err := e.Try(func() {
		o.SetStr("b", intToValue(2), true)
	})
	assert.ErrorIs(t, err, ErrNotExtensible)
	err = e.Try(func() {
		o.DefineDataProperty(StrKey("c"), intToValue(1), FLAG_TRUE, FLAG_TRUE, FLAG_TRUE)
	})
	assert.ErrorIs(t, err, ErrNotExtensible)
}

func TestDeleteNonConfigurable(t *testing.T) {
	e := New()
	o := e.NewObject()
	o.DefineDataProperty(StrKey("x"), intToValue(1), FLAG_TRUE, FLAG_FALSE, FLAG_TRUE)
	assert.False(t, o.DeleteStr("x", false))
	assert.ErrorIs(t, e.Try(func() { o.DeleteStr("x", true) }), ErrNonConfigurable)
	assert.True(t, o.HasOwnProperty(StrKey("x")))
}

func TestDescriptorCompatibility(t *testing.T) {
	e := New()
	o := e.NewObject()
	key := StrKey("c")
	o.DefineDataProperty(key, intToValue(42), FLAG_FALSE, FLAG_FALSE, FLAG_FALSE)

	if !o.DefineProperty(key, PropertyDescriptor{Value: intToValue(42)}, false) {
		t.Fatal("redefining with the same value failed")
	}
	if !o.DefineProperty(key, PropertyDescriptor{Value: floatToValue(42), Writable: FLAG_FALSE, Configurable: FLAG_FALSE}, false) {
		t.Fatal("redefining with identical attributes failed")
	}
	if o.DefineProperty(key, PropertyDescriptor{Value: intToValue(43)}, false) {
		t.Fatal("redefining with a different value succeeded")
	}
	assert.ErrorIs(t, e.Try(func() {
		o.DefineProperty(key, PropertyDescriptor{Value: intToValue(43)}, true)
	}), ErrNonConfigurable)
	for _, d := range []PropertyDescriptor{
		{Writable: FLAG_TRUE},
		{Configurable: FLAG_TRUE},
		{Enumerable: FLAG_TRUE},
		{Getter: _undefined},
	} {
		if o.DefineProperty(key, d, false) {
			t.Fatalf("incompatible redefinition %+v succeeded", d)
		}
	}
	assert.True(t, o.GetStr("c").SameAs(intToValue(42)))
}

func TestDescriptorWritableNonConfigurable(t *testing.T) {
	e := New()
	o := e.NewObject()
	key := StrKey("w")
	o.DefineDataProperty(key, intToValue(1), FLAG_TRUE, FLAG_FALSE, FLAG_TRUE)

	require.True(t, o.DefineProperty(key, PropertyDescriptor{Value: intToValue(2)}, false))
	assert.True(t, o.GetStr("w").SameAs(intToValue(2)))
	assert.False(t, o.DefineProperty(key, PropertyDescriptor{Enumerable: FLAG_FALSE}, false))
	assert.False(t, o.DefineProperty(key, PropertyDescriptor{Getter: e.NewFunction("g", 0, func(FunctionCall) Value { return _undefined })}, false))

	// writable -> read-only is allowed, back is not
	require.True(t, o.DefineProperty(key, PropertyDescriptor{Writable: FLAG_FALSE}, false))
	assert.False(t, o.DefineProperty(key, PropertyDescriptor{Writable: FLAG_TRUE}, false))
}

func TestDescriptorNegativeZero(t *testing.T) {
	e := New()
	o := e.NewObject()
	key := StrKey("z")
	o.DefineDataProperty(key, intToValue(0), FLAG_FALSE, FLAG_FALSE, FLAG_FALSE)
	assert.False(t, o.DefineProperty(key, PropertyDescriptor{Value: _negativeZero}, false))
	nan := StrKey("nan")
	o.DefineDataProperty(nan, _NaN, FLAG_FALSE, FLAG_FALSE, FLAG_FALSE)
	assert.True(t, o.DefineProperty(nan, PropertyDescriptor{Value: _NaN}, false))
}

func TestInvalidDescriptor(t *testing.T) {
	e := New()
	o := e.NewObject()
	f := e.NewFunction("f", 0, func(FunctionCall) Value { return _undefined })
	err := e.Try(func() {
		o.DefineProperty(StrKey("x"), PropertyDescriptor{Value: intToValue(1), Getter: f}, true)
	})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
	err = e.Try(func() {
		o.DefineProperty(StrKey("x"), PropertyDescriptor{Getter: e.NewObject()}, true)
	})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
	assert.False(t, o.HasOwnProperty(StrKey("x")))
}

func TestAccessorThisBinding(t *testing.T) {
	e := New()
	proto := e.NewObject()
	getter := e.NewFunction("get", 0, func(call FunctionCall) Value {
		return call.This.(*Object).GetStr("name")
	})
	var setThis Value
	var setArg Value
	setter := e.NewFunction("set", 1, func(call FunctionCall) Value {
		setThis = call.This
		setArg = call.Argument(0)
		return _undefined
	})
	proto.DefineAccessorProperty(StrKey("v"), getter, setter, FLAG_TRUE, FLAG_TRUE)

	child := e.NewObjectWithPrototype(proto)
	child.SetStr("name", NewString("child"), true)
	if v := child.GetStr("v"); v.String() != "child" {
		t.Fatalf("getter saw the wrong this: %v", v)
	}

	if !child.SetStr("v", intToValue(7), true) {
		t.Fatal("inherited setter failed")
	}
	if setThis != child || !setArg.SameAs(intToValue(7)) {
		t.Fatal("setter called with wrong arguments")
	}
	if child.HasOwnProperty(StrKey("v")) {
		t.Fatal("inherited setter created an own property")
	}
}

func TestAccessorWithoutSetter(t *testing.T) {
	e := New()
	o := e.NewObject()
	getter := e.NewFunction("get", 0, func(FunctionCall) Value { return intToValue(1) })
	o.DefineAccessorProperty(StrKey("g"), getter, nil, FLAG_TRUE, FLAG_TRUE)
	assert.True(t, o.SetStr("g", intToValue(5), true))
	assert.True(t, o.GetStr("g").SameAs(intToValue(1)))

	o.DefineAccessorProperty(StrKey("s"), nil, nil, FLAG_TRUE, FLAG_TRUE)
	assert.True(t, IsUndefined(o.GetStr("s")))

	d, ok := o.GetOwnPropertyDescriptor(StrKey("g"))
	require.True(t, ok)
	assert.Same(t, getter, d.Getter)
	assert.True(t, IsUndefined(d.Setter))
	assert.Nil(t, d.Value)
	assert.Equal(t, "A:-ec", d.Attr().String())
}

func TestAccessorDataConversion(t *testing.T) {
	e := New()
	o := e.NewObject()
	getter := e.NewFunction("get", 0, func(FunctionCall) Value { return intToValue(1) })
	key := StrKey("p")
	o.SetStr("p", intToValue(0), true)
	shape := o.Shape()
	require.True(t, o.DefineProperty(key, PropertyDescriptor{Getter: getter}, true))
	assert.NotSame(t, shape, o.Shape())
	_, attrs, _ := o.Shape().Lookup(key)
	assert.True(t, attrs.IsAccessor())
	assert.True(t, o.GetStr("p").SameAs(intToValue(1)))

	require.True(t, o.DefineProperty(key, PropertyDescriptor{Value: intToValue(3)}, true))
	d, _ := o.GetOwnPropertyDescriptor(key)
	assert.Equal(t, FLAG_FALSE, d.Writable)
	assert.Equal(t, FLAG_TRUE, d.Enumerable)
	assert.True(t, d.Value.SameAs(intToValue(3)))
}

func TestSetPrototype(t *testing.T) {
	e := New()
	a := e.NewObject()
	b := e.NewObjectWithPrototype(a)
	c := e.NewObjectWithPrototype(b)

	assert.False(t, a.SetPrototype(c, false))
	assert.ErrorIs(t, e.Try(func() { a.SetPrototype(c, true) }), ErrNonConfigurable)
	assert.False(t, a.SetPrototype(a, false))
	assert.Same(t, e.ObjectPrototype, a.GetPrototype())

	assert.True(t, c.SetPrototype(nil, true))
	assert.Nil(t, c.GetPrototype())
	assert.True(t, a.SetPrototype(c, true))

	c.PreventExtensions()
	assert.False(t, c.SetPrototype(b, false))
	assert.True(t, c.SetPrototype(nil, false), "same prototype is always accepted")
}

func TestSetPrototypeDepthLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPrototypeDepth = 3
	e := New(WithConfig(cfg))
	var chain *Object
	for i := 0; i < 4; i++ {
		chain = e.NewObjectWithPrototype(chain)
	}
	o := e.NewObject()
	assert.False(t, o.SetPrototype(chain, false))
	assert.True(t, o.SetPrototype(chain.GetPrototype(), false))
}

func TestEnumerationOrder(t *testing.T) {
	e := New()
	o := e.NewObject()
	sym1 := NewSymbol("one")
	sym2 := NewSymbol("two")
	o.Set(SymKey(sym2), intToValue(0), true)
	o.SetStr("b", intToValue(0), true)
	o.SetStr("10", intToValue(0), true)
	o.Set(SymKey(sym1), intToValue(0), true)
	o.SetStr("a", intToValue(0), true)
	o.SetStr("2", intToValue(0), true)
	o.SetStr("01", intToValue(0), true)
	o.SetStr("4294967295", intToValue(0), true)

	want := []string{"2", "10", "b", "a", "01", "4294967295", "Symbol(two)", "Symbol(one)"}
	assert.Equal(t, want, keyStrings(o.OwnKeys()))

	props := o.EnumerateOwnProperties()
	require.Len(t, props, len(want))
	for i, p := range props {
		assert.Equal(t, want[i], p.Key.String())
		assert.Equal(t, FLAG_TRUE, p.Descriptor.Writable)
	}
}

func TestEnumerateKeys(t *testing.T) {
	e := New()
	proto := e.NewObject()
	proto.SetStr("inherited", intToValue(1), true)
	proto.SetStr("shadowed", intToValue(1), true)
	proto.SetStr("hidden", intToValue(1), true)
	o := e.NewObjectWithPrototype(proto)
	o.SetStr("own", intToValue(1), true)
	o.DefineDataProperty(StrKey("hidden"), intToValue(2), FLAG_TRUE, FLAG_TRUE, FLAG_FALSE)
	o.SetStr("shadowed", intToValue(2), true)
	o.Set(SymKey(NewSymbol("s")), intToValue(1), true)

	assert.Equal(t, []string{"own", "shadowed", "inherited"}, keyStrings(o.EnumerateKeys()))
}

func TestFreezeSeal(t *testing.T) {
	e := New()
	o := e.NewObject()
	o.SetStr("a", intToValue(1), true)
	getter := e.NewFunction("get", 0, func(FunctionCall) Value { return intToValue(1) })
	o.DefineAccessorProperty(StrKey("g"), getter, nil, FLAG_TRUE, FLAG_TRUE)

	require.True(t, o.Seal())
	assert.False(t, o.IsExtensible())
	assert.False(t, o.IsFrozen())
	assert.True(t, o.SetStr("a", intToValue(2), false))
	assert.False(t, o.DeleteStr("a", false))

	require.True(t, o.Freeze())
	assert.True(t, o.IsFrozen())
	assert.False(t, o.SetStr("a", intToValue(3), false))
	assert.True(t, o.GetStr("a").SameAs(intToValue(2)))

	other := e.NewObject()
	other.SetStr("a", intToValue(1), true)
	other.SetStr("g", intToValue(1), true)
	other.Freeze()
	_, attrs, _ := other.Shape().Lookup(StrKey("a"))
	assert.Equal(t, AttrEnumerable, attrs)
}

func TestMissingHook(t *testing.T) {
	e := New()
	proto := e.NewObject()
	proto.SetStr("fromProto", intToValue(1), true)
	o := e.NewObjectWithPrototype(proto)
	var calls []string
	o.SetMissingHook(func(receiver *Object, key PropertyKey) Value {
		calls = append(calls, key.String())
		if key.String() == "synth" {
			return NewString("made")
		}
		return nil
	})
	assert.Equal(t, "made", o.GetStr("synth").String())
	assert.True(t, o.GetStr("fromProto").SameAs(intToValue(1)))
	assert.Nil(t, o.GetStr("nothing"))
	assert.Nil(t, o.GetOwn(StrKey("synth")))
	assert.False(t, o.HasProperty(StrKey("synth")))
	assert.Equal(t, []string{"synth", "nothing"}, calls)

	o.SetMissingHook(nil)
	assert.Nil(t, o.GetStr("synth"))
}

func TestResourceExhaustionAlwaysSignals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProperties = 2
	e := New(WithConfig(cfg))
	o := e.NewObject()
	o.SetStr("a", intToValue(1), false)
	o.SetStr("b", intToValue(1), false)
	err := e.Try(func() {
		o.SetStr("c", intToValue(1), false)
	})
	assert.ErrorIs(t, err, ErrTooManyProperties)
	assert.Equal(t, 2, o.Shape().Len())
}

func TestNewObjectWithShape(t *testing.T) {
	e := New()
	g := e.Shapes()
	getter := e.NewFunction("get", 0, func(FunctionCall) Value { return NewString("g") })
	s := g.Root().AddProperty(StrKey("x"), FullAccess).AddProperty(StrKey("acc"), AttrAccessor|AttrEnumerable)
	o := e.NewObjectWithShape(e.ObjectPrototype, s, 1, &AccessorCell{Getter: getter})
	assert.Same(t, s, o.Shape())
	assert.True(t, o.GetStr("x").SameAs(intToValue(1)))
	assert.Equal(t, "g", o.GetStr("acc").String())
	o2 := e.NewObject()
	o2.SetStr("x", intToValue(5), true)
	assert.Same(t, s.Parent(), o2.Shape())
}

func TestExport(t *testing.T) {
	e := New()
	o := e.NewObject()
	o.SetStr("n", intToValue(1), true)
	o.SetStr("s", NewString("str"), true)
	o.DefineDataProperty(StrKey("hidden"), valueTrue, FLAG_TRUE, FLAG_TRUE, FLAG_FALSE)
	o.SetStr("arr", e.NewArray(intToValue(1), NewString("x")), true)
	assert.Equal(t, map[string]interface{}{
		"n":   int64(1),
		"s":   "str",
		"arr": []interface{}{int64(1), "x"},
	}, o.Export())
}
