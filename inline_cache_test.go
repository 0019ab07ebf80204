package kestrel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A deletion compacts slots; a cache filled before the deletion must not read
// the slot that now belongs to another property.
func TestInlineCacheSurvivesSlotCompaction(t *testing.T) {
	e := New()
	o := e.NewObject()
	o.SetStr("a", NewString("a-value"), true)
	o.SetStr("x", NewString("x-value"), true)

	ic := e.NewInlineCache(StrKey("x"))
	assert.Equal(t, "x-value", ic.Read(o).String())
	assert.Equal(t, "x-value", ic.Read(o).String())
	assert.Equal(t, uint64(1), ic.Stats().Hits)

	o.DeleteStr("a", true)
	o.SetStr("y", NewString("corrupt"), true)
	assert.Equal(t, "x-value", ic.Read(o).String())
	assert.Equal(t, "x-value", ic.Read(o).String())

	st := ic.Stats()
	assert.Equal(t, CachePolymorphic, st.State)
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(2), st.Misses)
}

func TestInlineCacheStates(t *testing.T) {
	e := New()
	ic := NewInlineCache(StrKey("x"), 2)
	assert.Equal(t, CacheUninitialized, ic.Stats().State)

	objs := make([]*Object, 3)
	for i := range objs {
		objs[i] = e.NewObject()
		for j := 0; j < i; j++ {
			objs[i].SetStr(string(rune('a'+j)), intToValue(0), true)
		}
		objs[i].SetStr("x", intToValue(int64(i)), true)
	}

	ic.Read(objs[0])
	assert.Equal(t, CacheMonomorphic, ic.Stats().State)
	ic.Read(objs[1])
	assert.Equal(t, CachePolymorphic, ic.Stats().State)
	ic.Read(objs[2])
	assert.Equal(t, CacheMegamorphic, ic.Stats().State)
	assert.Equal(t, 0, ic.Stats().Entries)

	for i, o := range objs {
		assert.True(t, ic.Read(o).SameAs(intToValue(int64(i))))
	}
	assert.Equal(t, uint64(0), ic.Stats().Hits)

	ic.Reset()
	assert.Equal(t, CacheUninitialized, ic.Stats().State)
	ic.Read(objs[2])
	ic.Read(objs[2])
	assert.Equal(t, uint64(1), ic.Stats().Hits)
}

func TestInlineCacheMissingAndInherited(t *testing.T) {
	e := New()
	proto := e.NewObject()
	proto.SetStr("x", NewString("inherited"), true)
	o := e.NewObjectWithPrototype(proto)

	ic := e.NewInlineCache(StrKey("x"))
	assert.Equal(t, "inherited", ic.Read(o).String())
	assert.Equal(t, CacheUninitialized, ic.Stats().State, "inherited properties are not cached")
	assert.Nil(t, ic.Read(e.NewObject()))
}

func TestInlineCacheUncacheable(t *testing.T) {
	e := New()
	calls := 0
	getter := e.NewFunction("get", 0, func(FunctionCall) Value {
		calls++
		return intToValue(int64(calls))
	})
	o := e.NewObject()
	o.DefineAccessorProperty(StrKey("acc"), getter, nil, FLAG_TRUE, FLAG_TRUE)

	ic := e.NewInlineCache(StrKey("acc"))
	assert.True(t, ic.Read(o).SameAs(intToValue(1)))
	assert.True(t, ic.Read(o).SameAs(intToValue(2)))
	assert.Equal(t, CacheUninitialized, ic.Stats().State)

	a := e.NewArray(intToValue(1), intToValue(2))
	lic := e.NewInlineCache(lengthKey)
	assert.True(t, lic.Read(a).SameAs(intToValue(2)))
	a.Push(intToValue(3))
	assert.True(t, lic.Read(a).SameAs(intToValue(3)))
	assert.Equal(t, CacheUninitialized, lic.Stats().State)

	ap := e.NewInlineCache(lengthKey)
	assert.True(t, ap.Read(e.ArrayPrototype).SameAs(intToValue(0)))
	assert.Equal(t, CacheUninitialized, ap.Stats().State)

	o.SetStr("0", NewString("zero"), true)
	iic := e.NewInlineCache(IdxKey(0))
	assert.Equal(t, "zero", iic.Read(o).String())
	assert.Equal(t, CacheUninitialized, iic.Stats().State)
}

func TestInlineCacheWrite(t *testing.T) {
	e := New()
	o := e.NewObject()
	ic := e.NewInlineCache(StrKey("x"))

	require.True(t, ic.Write(o, intToValue(1), true))
	assert.Equal(t, CacheMonomorphic, ic.Stats().State)
	require.True(t, ic.Write(o, intToValue(2), true))
	assert.Equal(t, uint64(1), ic.Stats().Hits)
	assert.True(t, o.GetStr("x").SameAs(intToValue(2)))

	ro := e.NewObject()
	ro.DefineDataProperty(StrKey("x"), intToValue(7), FLAG_FALSE, FLAG_TRUE, FLAG_TRUE)
	ic.Read(ro)
	hits := ic.Stats().Hits
	assert.False(t, ic.Write(ro, intToValue(8), false))
	assert.Equal(t, hits, ic.Stats().Hits)
	assert.True(t, ro.GetStr("x").SameAs(intToValue(7)))
	assert.ErrorIs(t, e.Try(func() { ic.Write(ro, intToValue(8), true) }), ErrReadOnly)
}

func TestInlineCachePlainLength(t *testing.T) {
	e := New()
	o := e.NewObject()
	o.SetStr("length", intToValue(7), true)
	ic := e.NewInlineCache(lengthKey)
	assert.True(t, ic.Read(o).SameAs(intToValue(7)))
	assert.True(t, ic.Read(o).SameAs(intToValue(7)))
	assert.Equal(t, CacheMonomorphic, ic.Stats().State)
	assert.Equal(t, uint64(1), ic.Stats().Hits)

	require.True(t, ic.Write(o, intToValue(8), true))
	assert.Equal(t, uint64(2), ic.Stats().Hits)
	assert.True(t, o.GetStr("length").SameAs(intToValue(8)))

	args := e.NewArguments([]Value{intToValue(1), intToValue(2)})
	assert.True(t, ic.Read(args).SameAs(intToValue(2)))
	assert.True(t, ic.Read(args).SameAs(intToValue(2)))
	assert.Equal(t, CachePolymorphic, ic.Stats().State)
	assert.Equal(t, uint64(3), ic.Stats().Hits)
}
