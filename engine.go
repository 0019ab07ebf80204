// Package kestrel implements the object and property core of an ECMAScript
// engine: hidden-class shapes, the property protocol with prototype chains,
// inline caches and hybrid dense/sparse array storage.
//
// An Engine and every object created by it must be used from one goroutine at
// a time.
package kestrel

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Version of the scenario and config formats understood by this package.
const Version = "1.2.0"

const (
	classObject = "Object"
	classArray  = "Array"
)

type Engine struct {
	id      uuid.UUID
	cfg     Config
	shapes  *ShapeGraph
	logger  zerolog.Logger
	signal  ErrorSignaler
	coercer Coercer
	hook    EngineHook

	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
}

// New creates an engine with its own shape graph and intrinsic prototypes.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	e := &Engine{
		id:      uuid.New(),
		cfg:     o.config,
		signal:  o.signal,
		coercer: o.coercer,
		hook:    o.hook,
	}
	e.logger = o.logger.With().Str("engine", e.id.String()).Logger()
	e.shapes = NewShapeGraph(e.cfg.LazyWalkLimit)
	e.shapes.hook = e.hook

	e.ObjectPrototype = e.newBaseObject(nil, classObject).val
	e.FunctionPrototype = e.NewFunction("", 0, func(FunctionCall) Value {
		return _undefined
	})
	e.FunctionPrototype.self.base().prototype = e.ObjectPrototype
	e.ArrayPrototype = e.newArrayObject(e.ObjectPrototype).val

	e.logger.Debug().Int("max_properties", e.cfg.MaxProperties).Msg("engine created")
	return e
}

func (e *Engine) ID() uuid.UUID {
	return e.id
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Shapes() *ShapeGraph {
	return e.shapes
}

func (e *Engine) Logger() *zerolog.Logger {
	return &e.logger
}

// ToPropertyKey converts a value into a key using the engine's Coercer.
func (e *Engine) ToPropertyKey(v Value) PropertyKey {
	return e.coercer.ToPropertyKey(v)
}

func (e *Engine) newBaseObject(proto *Object, class string) *baseObject {
	v := &Object{engine: e}
	o := &baseObject{
		class:      class,
		val:        v,
		extensible: true,
		prototype:  proto,
		shape:      e.shapes.root,
	}
	v.self = o
	return o
}

// NewObject creates an ordinary object inheriting from ObjectPrototype.
func (e *Engine) NewObject() *Object {
	return e.newBaseObject(e.ObjectPrototype, classObject).val
}

// NewObjectWithPrototype creates an ordinary object with the given prototype,
// which may be nil.
func (e *Engine) NewObjectWithPrototype(proto *Object) *Object {
	return e.newBaseObject(proto, classObject).val
}

// NewObjectWithShape creates an object that starts in a shape built elsewhere,
// typically by a literal or constructor template. values are assigned to the
// shape's slots in order; accessor slots must be given as *AccessorCell.
func (e *Engine) NewObjectWithShape(proto *Object, shape *Shape, values ...interface{}) *Object {
	if shape.graph != e.shapes {
		panic("kestrel: shape belongs to another engine")
	}
	o := e.newBaseObject(proto, classObject)
	o.setShape(shape)
	o.slots = make([]slot, shape.Len())
	keys := shape.orderedKeys()
	for i := range o.slots {
		_, attrs, _ := shape.Lookup(keys[i])
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		if attrs.IsAccessor() {
			cell, _ := v.(*AccessorCell)
			if cell == nil {
				cell = &AccessorCell{}
			}
			o.slots[i].accessor = cell
		} else {
			o.slots[i].value = ToValue(v)
		}
	}
	return o.val
}

// NewArray creates a dense array holding values.
func (e *Engine) NewArray(values ...Value) *Object {
	a := e.newArrayObject(e.ArrayPrototype)
	for i, v := range values {
		a.store.Set(uint32(i), v)
	}
	return a.val
}
