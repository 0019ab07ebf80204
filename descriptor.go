package kestrel

type Flag int

const (
	FLAG_NOT_SET Flag = iota
	FLAG_FALSE
	FLAG_TRUE
)

func (f Flag) Bool() bool {
	return f == FLAG_TRUE
}

func ToFlag(b bool) Flag {
	if b {
		return FLAG_TRUE
	}
	return FLAG_FALSE
}

// PropertyDescriptor is the argument of DefineProperty and the result of
// GetOwnPropertyDescriptor. A nil Value, Getter or Setter means the field is
// absent; an undefined Getter or Setter means "no function".
type PropertyDescriptor struct {
	Value Value

	Writable, Configurable, Enumerable Flag

	Getter, Setter Value
}

func (p PropertyDescriptor) IsAccessor() bool {
	return p.Getter != nil || p.Setter != nil
}

func (p PropertyDescriptor) IsData() bool {
	return p.Value != nil || p.Writable != FLAG_NOT_SET
}

// IsEmpty reports whether the descriptor is {}.
func (p PropertyDescriptor) IsEmpty() bool {
	return !p.IsAccessor() && !p.IsData() && p.Configurable == FLAG_NOT_SET && p.Enumerable == FLAG_NOT_SET
}

// Attr returns the attributes of a complete descriptor, with absent flags read
// as false.
func (p PropertyDescriptor) Attr() Attr {
	var a Attr
	if p.Writable.Bool() {
		a |= AttrWritable
	}
	if p.Enumerable.Bool() {
		a |= AttrEnumerable
	}
	if p.Configurable.Bool() {
		a |= AttrConfigurable
	}
	if p.IsAccessor() {
		a = a&^AttrWritable | AttrAccessor
	}
	return a
}

// ownProp is the resolved state of an own property, wherever it is stored.
type ownProp struct {
	value    Value
	accessor *AccessorCell
	attrs    Attr
	// slot index for shape-backed properties, -1 otherwise
	slot int
}

func (p *ownProp) get(receiver *Object) Value {
	if p.accessor != nil {
		return p.accessor.get(receiver)
	}
	return p.value
}

func (p *ownProp) descriptor() PropertyDescriptor {
	d := PropertyDescriptor{
		Enumerable:   ToFlag(p.attrs.Enumerable()),
		Configurable: ToFlag(p.attrs.Configurable()),
	}
	if p.accessor != nil {
		d.Getter = _undefined
		d.Setter = _undefined
		if p.accessor.Getter != nil {
			d.Getter = p.accessor.Getter
		}
		if p.accessor.Setter != nil {
			d.Setter = p.accessor.Setter
		}
		return d
	}
	d.Value = p.value
	d.Writable = ToFlag(p.attrs.Writable())
	return d
}

func (e *Engine) validateDescriptor(key PropertyKey, descr PropertyDescriptor, throw bool) bool {
	if descr.IsAccessor() && descr.IsData() {
		return e.errorResult(throw, InvalidDescriptorError, key, "Invalid property descriptor. Cannot both specify accessors and a value or writable attribute")
	}
	if descr.Getter != nil && descr.Getter != _undefined && !IsCallable(descr.Getter) {
		return e.errorResult(throw, InvalidDescriptorError, key, "Getter must be a function: %s", descr.Getter.String())
	}
	if descr.Setter != nil && descr.Setter != _undefined && !IsCallable(descr.Setter) {
		return e.errorResult(throw, InvalidDescriptorError, key, "Setter must be a function: %s", descr.Setter.String())
	}
	return true
}

// applyDescriptor runs the descriptor-compatibility check of descr against the
// current own property (if found) and returns the resulting property. The
// returned slot is copied from existing.
func (e *Engine) applyDescriptor(key PropertyKey, existing ownProp, found bool, descr PropertyDescriptor, throw bool) (ownProp, bool) {
	getterObj, _ := descr.Getter.(*Object)
	setterObj, _ := descr.Setter.(*Object)

	if !found {
		existing = ownProp{slot: -1}
	} else {
		attrs := existing.attrs
		isAccessor := existing.accessor != nil
		if !attrs.Configurable() {
			if descr.Configurable == FLAG_TRUE {
				goto Reject
			}
			if descr.Enumerable != FLAG_NOT_SET && descr.Enumerable.Bool() != attrs.Enumerable() {
				goto Reject
			}
		}
		if isAccessor && descr.IsData() || !isAccessor && descr.IsAccessor() {
			if !attrs.Configurable() {
				goto Reject
			}
		} else if !isAccessor {
			if !attrs.Configurable() && !attrs.Writable() {
				if descr.Writable == FLAG_TRUE {
					goto Reject
				}
				if descr.Value != nil && !descr.Value.SameAs(existing.value) {
					goto Reject
				}
			}
		} else {
			if !attrs.Configurable() {
				if descr.Getter != nil && existing.accessor.Getter != getterObj || descr.Setter != nil && existing.accessor.Setter != setterObj {
					goto Reject
				}
			}
		}
	}

	if descr.Writable != FLAG_NOT_SET {
		existing.attrs = setAttr(existing.attrs, AttrWritable, descr.Writable.Bool())
	}
	if descr.Enumerable != FLAG_NOT_SET {
		existing.attrs = setAttr(existing.attrs, AttrEnumerable, descr.Enumerable.Bool())
	}
	if descr.Configurable != FLAG_NOT_SET {
		existing.attrs = setAttr(existing.attrs, AttrConfigurable, descr.Configurable.Bool())
	}

	if descr.IsData() {
		if existing.accessor != nil {
			existing.accessor = nil
			// accessor -> data keeps enumerable and configurable only
			existing.attrs &^= AttrAccessor
			if descr.Writable == FLAG_NOT_SET {
				existing.attrs &^= AttrWritable
			}
		}
		if descr.Value != nil {
			existing.value = descr.Value
		}
	}

	if descr.IsAccessor() {
		cell := existing.accessor
		if cell == nil {
			cell = &AccessorCell{}
			existing.value = nil
			existing.attrs = existing.attrs&^AttrWritable | AttrAccessor
		} else {
			// cells are shared with descriptors handed out earlier
			c := *cell
			cell = &c
		}
		if descr.Getter != nil {
			cell.Getter = getterObj
		}
		if descr.Setter != nil {
			cell.Setter = setterObj
		}
		existing.accessor = cell
	}

	if existing.accessor == nil && existing.value == nil {
		existing.value = _undefined
	}

	return existing, true

Reject:
	e.errorResult(throw, NonConfigurableError, key, "Cannot redefine property: %s", key.String())
	return ownProp{}, false
}

func setAttr(a, flag Attr, on bool) Attr {
	if on {
		return a | flag
	}
	return a &^ flag
}
