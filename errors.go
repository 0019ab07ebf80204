package kestrel

import (
	"fmt"
)

// ErrorKind categorises failures of property operations.
type ErrorKind int

const (
	// ExtensibilityError: adding a property to a non-extensible object.
	ExtensibilityError ErrorKind = iota + 1
	// ReadOnlyError: writing a non-writable data property.
	ReadOnlyError
	// NonConfigurableError: deleting or incompatibly redefining a
	// non-configurable property, or introducing a prototype cycle.
	NonConfigurableError
	// InvalidLengthError: an array length that is not a uint32.
	InvalidLengthError
	// ResourceExhaustion: too many named properties on one object. Always signalled.
	ResourceExhaustion
	// InvalidDescriptorError: a descriptor mixing data and accessor fields,
	// or an accessor that is not callable.
	InvalidDescriptorError
)

var kindNames = map[ErrorKind]string{
	ExtensibilityError:     "ExtensibilityError",
	ReadOnlyError:          "ReadOnlyError",
	NonConfigurableError:   "NonConfigurableError",
	InvalidLengthError:     "InvalidLengthError",
	ResourceExhaustion:     "ResourceExhaustion",
	InvalidDescriptorError: "InvalidDescriptorError",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseErrorKind is the inverse of ErrorKind.String.
func ParseErrorKind(s string) (ErrorKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// PropertyError is the failure reported by a property operation.
type PropertyError struct {
	Kind    ErrorKind
	Key     PropertyKey
	Message string
}

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrNotExtensible     = &PropertyError{Kind: ExtensibilityError}
	ErrReadOnly          = &PropertyError{Kind: ReadOnlyError}
	ErrNonConfigurable   = &PropertyError{Kind: NonConfigurableError}
	ErrInvalidLength     = &PropertyError{Kind: InvalidLengthError}
	ErrTooManyProperties = &PropertyError{Kind: ResourceExhaustion}
	ErrInvalidDescriptor = &PropertyError{Kind: InvalidDescriptorError}
)

func (e *PropertyError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *PropertyError) Is(target error) bool {
	if t, ok := target.(*PropertyError); ok {
		return t.Kind == e.Kind
	}
	return false
}

// ErrorSignaler turns a failure into whatever the embedding uses as a
// language-level exception. Signal is expected not to return; if it does, the
// operation reports false.
type ErrorSignaler interface {
	Signal(err *PropertyError)
}

type panicSignaler struct{}

func (panicSignaler) Signal(err *PropertyError) {
	panic(err)
}

func (e *Engine) errorResult(throw bool, kind ErrorKind, key PropertyKey, format string, args ...interface{}) bool {
	err := &PropertyError{
		Kind:    kind,
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	}
	if e.hook != nil {
		e.hook.OnPropertyError(err, throw)
	}
	if kind == ResourceExhaustion {
		e.logger.Error().Str("key", key.String()).Msg(err.Message)
		e.signal.Signal(err)
		return false
	}
	if throw {
		e.signal.Signal(err)
	}
	return false
}

// Try runs f and converts a *PropertyError raised by the default signaler into
// a returned error. Other panics propagate.
func (e *Engine) Try(f func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			if pe, ok := x.(*PropertyError); ok {
				err = pe
				return
			}
			panic(x)
		}
	}()
	f()
	return nil
}
