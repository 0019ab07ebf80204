package kestrel

// AccessorCell is the slot content of an accessor property. Either function
// may be nil.
type AccessorCell struct {
	Getter *Object
	Setter *Object
}

// get calls the getter with this bound to receiver, which is not necessarily
// the object the property was found on.
func (a *AccessorCell) get(receiver *Object) Value {
	if a.Getter == nil {
		return _undefined
	}
	return a.Getter.Call(receiver)
}

// set calls the setter. Without a setter the write is silently dropped and
// still reports success.
func (a *AccessorCell) set(receiver *Object, v Value) bool {
	if a.Setter != nil {
		a.Setter.Call(receiver, v)
	}
	return true
}
