package kestrel

import (
	"github.com/bits-and-blooms/bitset"
)

const classArguments = "Arguments"

// argumentsObject maps its leading indices onto a slice shared with the
// caller: writes through the object are visible in the slice and vice versa.
// An index stops being mapped once it is deleted or redefined as an accessor
// or read-only property; from then on it is an ordinary property.
type argumentsObject struct {
	baseObject

	args     []Value
	unmapped bitset.BitSet
}

// NewArguments creates an arguments object over args. The object has an own
// writable, non-enumerable "length".
func (e *Engine) NewArguments(args []Value) *Object {
	v := &Object{engine: e}
	a := &argumentsObject{args: args}
	a.class = classArguments
	a.val = v
	a.extensible = true
	a.prototype = e.ObjectPrototype
	a.shape = e.shapes.root
	v.self = a
	a.addProp(lengthKey, AttrWritable|AttrConfigurable, slot{value: intToValue(int64(len(args)))}, true)
	return v
}

func (a *argumentsObject) mapped(key PropertyKey) (uint32, bool) {
	idx, ok := key.index()
	if !ok || int64(idx) >= int64(len(a.args)) || a.unmapped.Test(uint(idx)) {
		return 0, false
	}
	return idx, true
}

func (a *argumentsObject) getOwn(key PropertyKey) (ownProp, bool) {
	if idx, ok := a.mapped(key); ok {
		v := a.args[idx]
		if v == nil {
			v = _undefined
		}
		return ownProp{value: v, attrs: FullAccess, slot: -1}, true
	}
	return a.baseObject.getOwn(key)
}

func (a *argumentsObject) putOwn(key PropertyKey, p ownProp, v Value, throw bool) bool {
	if idx, ok := a.mapped(key); ok {
		a.args[idx] = v
		return true
	}
	return a.baseObject.putOwn(key, p, v, throw)
}

func (a *argumentsObject) defineOwn(key PropertyKey, descr PropertyDescriptor, throw bool) bool {
	idx, ok := a.mapped(key)
	if !ok {
		return a.baseObject.defineOwn(key, descr, throw)
	}
	existing, _ := a.getOwn(key)
	p, ok := a.val.engine.applyDescriptor(key, existing, true, descr, throw)
	if !ok {
		return false
	}
	if p.accessor == nil && p.attrs == FullAccess {
		a.args[idx] = p.value
		return true
	}
	if !a.addProp(key, p.attrs, slot{value: p.value, accessor: p.accessor}, throw) {
		return false
	}
	if p.accessor == nil {
		a.args[idx] = p.value
	}
	a.unmapped.Set(uint(idx))
	return true
}

func (a *argumentsObject) deleteOwn(key PropertyKey, p ownProp, throw bool) bool {
	if idx, ok := a.mapped(key); ok {
		a.unmapped.Set(uint(idx))
		return true
	}
	return a.baseObject.deleteOwn(key, p, throw)
}

func (a *argumentsObject) ownKeys() []PropertyKey {
	shapeKeys := a.shape.orderedKeys()
	keys := make([]PropertyKey, 0, len(a.args)+len(shapeKeys))
	for i := range a.args {
		if !a.unmapped.Test(uint(i)) {
			keys = append(keys, IdxKey(uint32(i)))
		}
	}
	keys = append(keys, shapeKeys...)
	return orderKeys(nil, keys)
}

func (a *argumentsObject) export() interface{} {
	arr := make([]interface{}, 0, len(a.args))
	for i := range a.args {
		if v := a.val.Get(IdxKey(uint32(i))); v != nil {
			arr = append(arr, v.Export())
		} else {
			arr = append(arr, nil)
		}
	}
	return arr
}
