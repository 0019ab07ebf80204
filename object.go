package kestrel

import (
	"sort"
)

// Object is a script-visible object. The zero value is not usable; objects are
// created by an Engine.
type Object struct {
	engine *Engine
	self   objectImpl
}

// MissingPropertyHook synthesizes a value for key after the lookup failed
// through the whole prototype chain. Returning nil keeps the property missing.
type MissingPropertyHook func(receiver *Object, key PropertyKey) Value

// OwnProperty is one entry of EnumerateOwnProperties.
type OwnProperty struct {
	Key        PropertyKey
	Descriptor PropertyDescriptor
}

type objectImpl interface {
	className() string
	base() *baseObject

	getOwn(key PropertyKey) (ownProp, bool)
	// putOwn overwrites an own writable data property previously returned by getOwn.
	putOwn(key PropertyKey, p ownProp, v Value, throw bool) bool
	// addOwn creates an own data property with default attributes. The caller
	// has checked extensibility.
	addOwn(key PropertyKey, v Value, throw bool) bool
	defineOwn(key PropertyKey, descr PropertyDescriptor, throw bool) bool
	// deleteOwn removes a configurable own property.
	deleteOwn(key PropertyKey, p ownProp, throw bool) bool
	// ownKeys returns all own keys: indices ascending, then strings, then
	// symbols, each in insertion order.
	ownKeys() []PropertyKey

	export() interface{}
	assertCallable() (func(FunctionCall) Value, bool)
}

type slot struct {
	value    Value
	accessor *AccessorCell
}

type baseObject struct {
	class      string
	val        *Object
	prototype  *Object
	extensible bool

	shape *Shape
	// slots[i] holds the value of shape.Keys()[i]
	slots []slot

	missing MissingPropertyHook
}

func (o *baseObject) className() string {
	return o.class
}

func (o *baseObject) base() *baseObject {
	return o
}

func (o *baseObject) assertCallable() (func(FunctionCall) Value, bool) {
	return nil, false
}

func (o *baseObject) setShape(s *Shape) {
	o.shape = s
	s.uses++
}

func (o *baseObject) getOwn(key PropertyKey) (ownProp, bool) {
	idx, attrs, ok := o.shape.Lookup(key)
	if !ok {
		return ownProp{}, false
	}
	s := &o.slots[idx]
	return ownProp{value: s.value, accessor: s.accessor, attrs: attrs, slot: idx}, true
}

func (o *baseObject) putOwn(key PropertyKey, p ownProp, v Value, throw bool) bool {
	o.slots[p.slot].value = v
	return true
}

func (o *baseObject) addOwn(key PropertyKey, v Value, throw bool) bool {
	return o.addProp(key, FullAccess, slot{value: v}, throw)
}

func (o *baseObject) addProp(key PropertyKey, attrs Attr, s slot, throw bool) bool {
	e := o.val.engine
	if o.shape.Len() >= e.cfg.MaxProperties {
		return e.errorResult(throw, ResourceExhaustion, key, "Too many properties: object already has %d", o.shape.Len())
	}
	o.setShape(o.shape.AddProperty(key, attrs))
	o.appendSlot(s)
	return true
}

func (o *baseObject) appendSlot(s slot) {
	if len(o.slots) == cap(o.slots) {
		n := cap(o.slots) * 2
		if n == 0 {
			n = 4
		}
		slots := make([]slot, len(o.slots), n)
		copy(slots, o.slots)
		o.slots = slots
	}
	o.slots = append(o.slots, s)
}

// updateProp stores p into its slot and transitions the shape if the
// attributes changed.
func (o *baseObject) updateProp(key PropertyKey, old Attr, p ownProp) {
	o.slots[p.slot] = slot{value: p.value, accessor: p.accessor}
	if p.attrs != old {
		o.setShape(o.shape.SetAttributes(key, p.attrs))
	}
}

func (o *baseObject) defineOwn(key PropertyKey, descr PropertyDescriptor, throw bool) bool {
	existing, found := o.getOwn(key)
	if !found && !o.extensible {
		return o.val.engine.errorResult(throw, ExtensibilityError, key, "Cannot define property %s, object is not extensible", key.String())
	}
	p, ok := o.val.engine.applyDescriptor(key, existing, found, descr, throw)
	if !ok {
		return false
	}
	if found {
		o.updateProp(key, existing.attrs, p)
		return true
	}
	return o.addProp(key, p.attrs, slot{value: p.value, accessor: p.accessor}, throw)
}

func (o *baseObject) deleteOwn(key PropertyKey, p ownProp, throw bool) bool {
	o.setShape(o.shape.DeleteProperty(key))
	copy(o.slots[p.slot:], o.slots[p.slot+1:])
	o.slots[len(o.slots)-1] = slot{}
	o.slots = o.slots[:len(o.slots)-1]
	return true
}

func (o *baseObject) ownKeys() []PropertyKey {
	return orderKeys(nil, o.shape.orderedKeys())
}

func (o *baseObject) export() interface{} {
	m := make(map[string]interface{})
	for _, key := range o.val.self.ownKeys() {
		if key.IsSymbol() {
			continue
		}
		p, ok := o.val.self.getOwn(key)
		if !ok || !p.attrs.Enumerable() {
			continue
		}
		if v := p.get(o.val); v != nil {
			m[key.String()] = v.Export()
		}
	}
	return m
}

// orderKeys appends keys to dst in enumeration order: index keys ascending,
// then other strings, then symbols, preserving insertion order in the last two
// groups.
func orderKeys(dst []PropertyKey, keys []PropertyKey) []PropertyKey {
	var indices []uint32
	for _, k := range keys {
		if idx, ok := k.index(); ok {
			indices = append(indices, idx)
		}
	}
	if len(indices) > 0 {
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		for _, idx := range indices {
			dst = append(dst, IdxKey(idx))
		}
	}
	for _, k := range keys {
		if k.IsSymbol() {
			continue
		}
		if _, ok := k.index(); !ok {
			dst = append(dst, k)
		}
	}
	for _, k := range keys {
		if k.IsSymbol() {
			dst = append(dst, k)
		}
	}
	return dst
}

// Engine returns the engine that created o.
func (o *Object) Engine() *Engine {
	return o.engine
}

// ClassName is the internal class, e.g. "Object", "Array", "Function".
func (o *Object) ClassName() string {
	return o.self.className()
}

// Shape returns the current shape of the object's named properties.
func (o *Object) Shape() *Shape {
	return o.self.base().shape
}

// Get returns the value of key, searching the prototype chain. Accessors are
// called with o as this. The result is nil if the property is missing.
func (o *Object) Get(key PropertyKey) Value {
	return o.getWithReceiver(key, o)
}

// GetStr is Get with a string key.
func (o *Object) GetStr(name string) Value {
	return o.Get(StrKey(name))
}

func (o *Object) getWithReceiver(key PropertyKey, receiver *Object) Value {
	for obj := o; obj != nil; obj = obj.self.base().prototype {
		if p, ok := obj.self.getOwn(key); ok {
			return p.get(receiver)
		}
	}
	if h := receiver.self.base().missing; h != nil {
		return h(receiver, key)
	}
	return nil
}

// GetOwn is Get restricted to own properties; the missing-property hook is
// not consulted.
func (o *Object) GetOwn(key PropertyKey) Value {
	if p, ok := o.self.getOwn(key); ok {
		return p.get(o)
	}
	return nil
}

// SetMissingHook installs the hook consulted by Get after a failed lookup on o
// as the receiver. Pass nil to remove it.
func (o *Object) SetMissingHook(h MissingPropertyHook) {
	o.self.base().missing = h
}

// Set assigns v to key.
func (o *Object) Set(key PropertyKey, v Value, throw bool) bool {
	return o.setWithReceiver(key, v, o, throw)
}

// SetStr is Set with a string key.
func (o *Object) SetStr(name string, v Value, throw bool) bool {
	return o.Set(StrKey(name), v, throw)
}

func (o *Object) setWithReceiver(key PropertyKey, v Value, receiver *Object, throw bool) bool {
	e := o.engine
	if p, ok := o.self.getOwn(key); ok {
		if p.accessor != nil {
			return p.accessor.set(receiver, v)
		}
		if !p.attrs.Writable() {
			return e.errorResult(throw, ReadOnlyError, key, "Cannot assign to read only property '%s'", key.String())
		}
		return o.self.putOwn(key, p, v, throw)
	}
	for proto := o.self.base().prototype; proto != nil; proto = proto.self.base().prototype {
		p, ok := proto.self.getOwn(key)
		if !ok {
			continue
		}
		if p.accessor != nil {
			return p.accessor.set(receiver, v)
		}
		if !p.attrs.Writable() {
			return e.errorResult(throw, ReadOnlyError, key, "Cannot assign to read only property '%s'", key.String())
		}
		break
	}
	if !o.self.base().extensible {
		return e.errorResult(throw, ExtensibilityError, key, "Cannot add property %s, object is not extensible", key.String())
	}
	return o.self.addOwn(key, v, throw)
}

// Delete removes an own property. Deleting an absent key succeeds.
func (o *Object) Delete(key PropertyKey, throw bool) bool {
	p, ok := o.self.getOwn(key)
	if !ok {
		return true
	}
	if !p.attrs.Configurable() {
		return o.engine.errorResult(throw, NonConfigurableError, key, "Cannot delete property '%s' of %s", key.String(), o.String())
	}
	return o.self.deleteOwn(key, p, throw)
}

// DeleteStr is Delete with a string key.
func (o *Object) DeleteStr(name string, throw bool) bool {
	return o.Delete(StrKey(name), throw)
}

// DefineProperty creates or reconfigures an own property.
func (o *Object) DefineProperty(key PropertyKey, descr PropertyDescriptor, throw bool) bool {
	if !o.engine.validateDescriptor(key, descr, throw) {
		return false
	}
	return o.self.defineOwn(key, descr, throw)
}

// DefineDataProperty is a shorthand for DefineProperty with a complete data
// descriptor.
func (o *Object) DefineDataProperty(key PropertyKey, value Value, writable, configurable, enumerable Flag) bool {
	return o.DefineProperty(key, PropertyDescriptor{
		Value:        value,
		Writable:     writable,
		Configurable: configurable,
		Enumerable:   enumerable,
	}, true)
}

// DefineAccessorProperty is a shorthand for DefineProperty with an accessor
// descriptor. getter and setter may be nil.
func (o *Object) DefineAccessorProperty(key PropertyKey, getter, setter *Object, configurable, enumerable Flag) bool {
	descr := PropertyDescriptor{
		Getter:       _undefined,
		Setter:       _undefined,
		Configurable: configurable,
		Enumerable:   enumerable,
	}
	if getter != nil {
		descr.Getter = getter
	}
	if setter != nil {
		descr.Setter = setter
	}
	return o.DefineProperty(key, descr, true)
}

// HasProperty reports whether key is an own or inherited property.
func (o *Object) HasProperty(key PropertyKey) bool {
	for obj := o; obj != nil; obj = obj.self.base().prototype {
		if _, ok := obj.self.getOwn(key); ok {
			return true
		}
	}
	return false
}

func (o *Object) HasOwnProperty(key PropertyKey) bool {
	_, ok := o.self.getOwn(key)
	return ok
}

func (o *Object) GetOwnPropertyDescriptor(key PropertyKey) (PropertyDescriptor, bool) {
	p, ok := o.self.getOwn(key)
	if !ok {
		return PropertyDescriptor{}, false
	}
	return p.descriptor(), true
}

// OwnKeys returns all own keys in enumeration order.
func (o *Object) OwnKeys() []PropertyKey {
	return o.self.ownKeys()
}

// EnumerateOwnProperties returns every own property with its descriptor:
// index keys ascending, then string keys, then symbols, each group in
// insertion order.
func (o *Object) EnumerateOwnProperties() []OwnProperty {
	keys := o.self.ownKeys()
	res := make([]OwnProperty, 0, len(keys))
	for _, key := range keys {
		if p, ok := o.self.getOwn(key); ok {
			res = append(res, OwnProperty{Key: key, Descriptor: p.descriptor()})
		}
	}
	return res
}

func (o *Object) GetPrototype() *Object {
	return o.self.base().prototype
}

// SetPrototype replaces the prototype reference. It fails if o is not
// extensible or if proto has o among its ancestors.
func (o *Object) SetPrototype(proto *Object, throw bool) bool {
	b := o.self.base()
	if b.prototype == proto {
		return true
	}
	e := o.engine
	if !b.extensible {
		return e.errorResult(throw, ExtensibilityError, PropertyKey{}, "%s is not extensible", o.String())
	}
	depth := 0
	for p := proto; p != nil; p = p.self.base().prototype {
		if p == o {
			return e.errorResult(throw, NonConfigurableError, PropertyKey{}, "Cyclic __proto__ value")
		}
		depth++
		if depth > e.cfg.MaxPrototypeDepth {
			return e.errorResult(throw, NonConfigurableError, PropertyKey{}, "Prototype chain is deeper than %d", e.cfg.MaxPrototypeDepth)
		}
	}
	b.prototype = proto
	return true
}

func (o *Object) IsExtensible() bool {
	return o.self.base().extensible
}

func (o *Object) PreventExtensions() {
	o.self.base().extensible = false
}

// Seal makes every own property non-configurable and the object non-extensible.
func (o *Object) Seal() bool {
	return o.setIntegrity(false)
}

// Freeze is Seal plus making every data property read-only.
func (o *Object) Freeze() bool {
	return o.setIntegrity(true)
}

func (o *Object) setIntegrity(frozen bool) bool {
	o.PreventExtensions()
	for _, key := range o.self.ownKeys() {
		p, ok := o.self.getOwn(key)
		if !ok {
			continue
		}
		descr := PropertyDescriptor{Configurable: FLAG_FALSE}
		if frozen && p.accessor == nil {
			descr.Writable = FLAG_FALSE
		}
		if !o.self.defineOwn(key, descr, false) {
			return false
		}
	}
	return true
}

// IsFrozen reports whether o is non-extensible and all its own properties are
// non-configurable and, for data properties, read-only.
func (o *Object) IsFrozen() bool {
	if o.IsExtensible() {
		return false
	}
	for _, key := range o.self.ownKeys() {
		p, ok := o.self.getOwn(key)
		if !ok {
			continue
		}
		if p.attrs.Configurable() || p.accessor == nil && p.attrs.Writable() {
			return false
		}
	}
	return true
}

type propIterItem struct {
	key        PropertyKey
	enumerable bool
}

type iterNextFunc func() (propIterItem, iterNextFunc)

type objectPropIter struct {
	o    *Object
	keys []PropertyKey
	idx  int
}

// next skips keys deleted since the iteration started.
func (i *objectPropIter) next() (propIterItem, iterNextFunc) {
	for i.idx < len(i.keys) {
		key := i.keys[i.idx]
		i.idx++
		if key.IsSymbol() {
			continue
		}
		if p, ok := i.o.self.getOwn(key); ok {
			return propIterItem{key: key, enumerable: p.attrs.Enumerable()}, i.next
		}
	}
	return propIterItem{}, nil
}

type recursiveIter struct {
	o       *Object
	wrapped iterNextFunc
}

func (iter *recursiveIter) next() (propIterItem, iterNextFunc) {
	item, next := iter.wrapped()
	if next != nil {
		iter.wrapped = next
		return item, iter.next
	}
	if proto := iter.o.self.base().prototype; proto != nil {
		return proto.enumerateUnfiltered()()
	}
	return propIterItem{}, nil
}

type propFilterIter struct {
	wrapped iterNextFunc
	seen    map[PropertyKey]bool
}

// next drops keys shadowed by an earlier object in the chain, enumerable or not.
func (i *propFilterIter) next() (propIterItem, iterNextFunc) {
	for {
		var item propIterItem
		item, i.wrapped = i.wrapped()
		if i.wrapped == nil {
			return propIterItem{}, nil
		}
		if i.seen[item.key] {
			continue
		}
		i.seen[item.key] = true
		if item.enumerable {
			return item, i.next
		}
	}
}

func (o *Object) ownIter() iterNextFunc {
	return (&objectPropIter{
		o:    o,
		keys: o.self.ownKeys(),
	}).next
}

func (o *Object) enumerateUnfiltered() iterNextFunc {
	return (&recursiveIter{
		o:       o,
		wrapped: o.ownIter(),
	}).next
}

func (o *Object) enumerate() iterNextFunc {
	return (&propFilterIter{
		wrapped: o.enumerateUnfiltered(),
		seen:    make(map[PropertyKey]bool),
	}).next
}

// EnumerateKeys returns the keys a for-in loop over o would visit: enumerable
// string keys of o and its prototypes, without duplicates.
func (o *Object) EnumerateKeys() []PropertyKey {
	var keys []PropertyKey
	for item, next := o.enumerate()(); next != nil; item, next = next() {
		keys = append(keys, item.key)
	}
	return keys
}
