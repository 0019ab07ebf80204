package kestrel

import "fmt"

const classFunction = "Function"

type FunctionCall struct {
	This      Value
	Arguments []Value
}

// Argument returns the idx-th argument or undefined.
func (f FunctionCall) Argument(idx int) Value {
	if idx < len(f.Arguments) {
		return f.Arguments[idx]
	}
	return _undefined
}

type nativeFuncObject struct {
	baseObject

	f func(FunctionCall) Value
}

func (f *nativeFuncObject) export() interface{} {
	return f.f
}

func (f *nativeFuncObject) assertCallable() (func(FunctionCall) Value, bool) {
	if f.f != nil {
		return f.f, true
	}
	return nil, false
}

// NewFunction creates a callable object with non-enumerable, read-only, configurable
// "length" and "name" properties.
func (e *Engine) NewFunction(name string, length int, call func(FunctionCall) Value) *Object {
	v := &Object{engine: e}
	f := &nativeFuncObject{f: call}
	f.class = classFunction
	f.val = v
	f.extensible = true
	f.prototype = e.FunctionPrototype
	f.shape = e.shapes.root
	v.self = f
	f.addProp(lengthKey, AttrConfigurable, slot{value: intToValue(int64(length))}, true)
	f.addProp(StrKey("name"), AttrConfigurable, slot{value: NewString(name)}, true)
	return v
}

// IsCallable reports whether v is an object that can be called.
func IsCallable(v Value) bool {
	if obj, ok := v.(*Object); ok {
		_, ok = obj.self.assertCallable()
		return ok
	}
	return false
}

// Call invokes a callable object. Calling anything else panics.
func (o *Object) Call(this Value, args ...Value) Value {
	call, ok := o.self.assertCallable()
	if !ok {
		panic(fmt.Errorf("kestrel: %s is not a function", o.String()))
	}
	if this == nil {
		this = _undefined
	}
	return call(FunctionCall{
		This:      this,
		Arguments: args,
	})
}
