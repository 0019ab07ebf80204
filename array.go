package kestrel

import (
	"math"
)

type arrayObject struct {
	baseObject

	store *ArrayStore
}

func (e *Engine) newArrayObject(proto *Object) *arrayObject {
	v := &Object{engine: e}
	a := &arrayObject{
		store: NewArrayStore(e.cfg.GrowthSlack),
	}
	a.class = classArray
	a.val = v
	a.extensible = true
	a.prototype = proto
	a.shape = e.shapes.root
	v.self = a
	a.addProp(lengthKey, AttrWritable|AttrLength, slot{}, true)
	a.store.onPromote = func(length, index uint32) {
		e.logger.Debug().Uint32("length", length).Uint32("index", index).Msg("array switched to sparse storage")
		if e.hook != nil {
			e.hook.OnArrayPromote(length, index)
		}
	}
	return a
}

// NewArrayWithPrototype creates an empty array inheriting from proto.
func (e *Engine) NewArrayWithPrototype(proto *Object) *Object {
	return e.newArrayObject(proto).val
}

func (a *arrayObject) lengthAttrs() Attr {
	_, attrs, _ := a.shape.Lookup(lengthKey)
	return attrs
}

func (a *arrayObject) getOwn(key PropertyKey) (ownProp, bool) {
	if idx, ok := key.index(); ok {
		if el := a.store.elem(idx); el != nil {
			return el.prop(), true
		}
		return ownProp{}, false
	}
	if key == lengthKey {
		return ownProp{value: intToValue(int64(a.store.Length())), attrs: a.lengthAttrs(), slot: -1}, true
	}
	return a.baseObject.getOwn(key)
}

func (a *arrayObject) putOwn(key PropertyKey, p ownProp, v Value, throw bool) bool {
	if p.attrs.IsLength() {
		return a.setLength(v, throw)
	}
	if idx, ok := key.index(); ok {
		a.store.Set(idx, v)
		return true
	}
	return a.baseObject.putOwn(key, p, v, throw)
}

func (a *arrayObject) addOwn(key PropertyKey, v Value, throw bool) bool {
	if idx, ok := key.index(); ok {
		if idx >= a.store.Length() && !a.lengthAttrs().Writable() {
			return a.val.engine.errorResult(throw, ReadOnlyError, lengthKey, "Cannot add index %d, length is not writable", idx)
		}
		a.store.Set(idx, v)
		return true
	}
	return a.baseObject.addOwn(key, v, throw)
}

func (a *arrayObject) defineOwn(key PropertyKey, descr PropertyDescriptor, throw bool) bool {
	e := a.val.engine
	if idx, ok := key.index(); ok {
		var existing ownProp
		el := a.store.elem(idx)
		if el != nil {
			existing = el.prop()
		} else {
			if !a.extensible {
				return e.errorResult(throw, ExtensibilityError, key, "Cannot define property %s, object is not extensible", key.String())
			}
			if idx >= a.store.Length() && !a.lengthAttrs().Writable() {
				return e.errorResult(throw, ReadOnlyError, lengthKey, "Cannot add index %d, length is not writable", idx)
			}
		}
		p, ok := e.applyDescriptor(key, existing, el != nil, descr, throw)
		if !ok {
			return false
		}
		a.store.setElem(idx, element{value: p.value, accessor: p.accessor, attrs: p.attrs})
		return true
	}
	if key == lengthKey {
		return a.defineLength(descr, throw)
	}
	return a.baseObject.defineOwn(key, descr, throw)
}

// defineLength validates the new length before anything else. A truncation
// blocked by a non-configurable element still applies a requested
// Writable=false.
func (a *arrayObject) defineLength(descr PropertyDescriptor, throw bool) bool {
	e := a.val.engine
	if descr.IsAccessor() {
		return e.errorResult(throw, NonConfigurableError, lengthKey, "Cannot redefine property: length")
	}
	var newLen uint32
	if descr.Value != nil {
		n, ok := toArrayLength(e.coercer.ToNumber(descr.Value))
		if !ok {
			return e.errorResult(throw, InvalidLengthError, lengthKey, "Invalid array length")
		}
		newLen = n
		descr.Value = intToValue(int64(n))
	}
	existing, _ := a.getOwn(lengthKey)
	p, ok := e.applyDescriptor(lengthKey, existing, true, descr, throw)
	if !ok {
		return false
	}
	ok = true
	var got uint32
	if descr.Value != nil && newLen != a.store.Length() {
		got, ok = a.store.SetLength(newLen)
	}
	if p.attrs != existing.attrs {
		a.setShape(a.shape.SetAttributes(lengthKey, p.attrs))
	}
	if !ok {
		return e.errorResult(throw, NonConfigurableError, IdxKey(got-1), "Cannot delete property '%d' of [object Array]", got-1)
	}
	return true
}

// setLength is the [[Set]] of "length"; the caller has checked it is writable.
func (a *arrayObject) setLength(v Value, throw bool) bool {
	e := a.val.engine
	n, ok := toArrayLength(e.coercer.ToNumber(v))
	if !ok {
		return e.errorResult(throw, InvalidLengthError, lengthKey, "Invalid array length")
	}
	if got, ok := a.store.SetLength(n); !ok {
		return e.errorResult(throw, NonConfigurableError, IdxKey(got-1), "Cannot delete property '%d' of [object Array]", got-1)
	}
	return true
}

func (a *arrayObject) deleteOwn(key PropertyKey, p ownProp, throw bool) bool {
	if idx, ok := key.index(); ok {
		a.store.Delete(idx)
		return true
	}
	return a.baseObject.deleteOwn(key, p, throw)
}

func (a *arrayObject) ownKeys() []PropertyKey {
	keys := make([]PropertyKey, 0, a.store.Count()+a.shape.Len())
	a.store.ascend(0, func(idx uint32, _ *element) bool {
		keys = append(keys, IdxKey(idx))
		return true
	})
	return orderKeys(keys, a.shape.orderedKeys())
}

func (a *arrayObject) export() interface{} {
	arr := make([]interface{}, a.store.Length())
	a.store.ascend(0, func(idx uint32, el *element) bool {
		p := el.prop()
		if v := p.get(a.val); v != nil {
			arr[idx] = v.Export()
		}
		return true
	})
	return arr
}

func (o *Object) asArray() *arrayObject {
	a, _ := o.self.(*arrayObject)
	return a
}

// IsArray reports whether o was created by NewArray.
func (o *Object) IsArray() bool {
	return o.asArray() != nil
}

// ArrayStore exposes the element storage of an array, or nil.
func (o *Object) ArrayStore() *ArrayStore {
	if a := o.asArray(); a != nil {
		return a.store
	}
	return nil
}

// Length returns the array length. For other objects it is the "length"
// property converted to uint32, clamped to 0 if not a valid length.
func (o *Object) Length() uint32 {
	if a := o.asArray(); a != nil {
		return a.store.Length()
	}
	v := o.Get(lengthKey)
	if v == nil {
		return 0
	}
	n := o.engine.coercer.ToNumber(v)
	switch {
	case math.IsNaN(n) || n <= 0:
		return 0
	case n >= maxLength:
		return maxLength
	}
	return uint32(n)
}

// SetLength assigns "length".
func (o *Object) SetLength(n uint32, throw bool) bool {
	return o.Set(lengthKey, intToValue(int64(n)), throw)
}

// GetElement returns the value at idx, falling through to the prototype chain
// for holes. The result is nil if the element is missing.
func (o *Object) GetElement(idx uint32) Value {
	if a := o.asArray(); a != nil && idx <= MaxIndex {
		if el := a.store.elem(idx); el != nil {
			if el.accessor != nil {
				return el.accessor.get(o)
			}
			return el.value
		}
		if a.prototype != nil {
			return a.prototype.getWithReceiver(IdxKey(idx), o)
		}
		if a.missing != nil {
			return a.missing(o, IdxKey(idx))
		}
		return nil
	}
	return o.Get(IdxKey(idx))
}

// SetElement assigns v at idx.
func (o *Object) SetElement(idx uint32, v Value, throw bool) bool {
	if a := o.asArray(); a != nil {
		if el := a.store.elem(idx); el != nil && el.accessor == nil && el.attrs.Writable() {
			el.value = v
			return true
		}
	}
	return o.Set(IdxKey(idx), v, throw)
}

// DeleteElement turns idx into a hole.
func (o *Object) DeleteElement(idx uint32, throw bool) bool {
	return o.Delete(IdxKey(idx), throw)
}

// Push appends values and returns the new length. Failures are signalled.
func (o *Object) Push(values ...Value) uint32 {
	n := uint64(o.Length())
	for _, v := range values {
		if n > MaxIndex {
			o.engine.errorResult(true, InvalidLengthError, lengthKey, "Pushing %d elements on an array-like of length %d is disallowed", len(values), n)
			return uint32(n)
		}
		o.Set(IdxKey(uint32(n)), v, true)
		n++
	}
	o.SetLength(uint32(n), true)
	return uint32(n)
}

// Pop removes and returns the last element. It returns nil if the length is 0,
// and undefined if the last element is a hole with nothing inherited.
func (o *Object) Pop() Value {
	n := o.Length()
	if n == 0 {
		o.SetLength(0, true)
		return nil
	}
	idx := n - 1
	v := o.GetElement(idx)
	o.DeleteElement(idx, true)
	o.SetLength(idx, true)
	if v == nil {
		v = _undefined
	}
	return v
}
