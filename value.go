package kestrel

import (
	"math"
	"strconv"

	"github.com/kestrel-js/kestrel/unistring"
)

var (
	valueFalse    Value = valueBool(false)
	valueTrue     Value = valueBool(true)
	_null         Value = valueNull{}
	_NaN          Value = valueFloat(math.NaN())
	_positiveInf  Value = valueFloat(math.Inf(+1))
	_negativeInf  Value = valueFloat(math.Inf(-1))
	negativeZero        = math.Float64frombits(0 | (1 << 63))
	_negativeZero Value = valueFloat(negativeZero)
	_undefined    Value = valueUndefined{}
)

// Value is anything that can be stored in a property slot.
type Value interface {
	String() string
	// SameAs implements SameValue: NaN is the same as NaN, +0 is not the same as -0.
	SameAs(Value) bool
	Export() interface{}
}

type valueInt int64
type valueFloat float64
type valueBool bool
type valueNull struct{}
type valueUndefined struct{}
type valueString unistring.String

func Undefined() Value {
	return _undefined
}

func Null() Value {
	return _null
}

func IsUndefined(v Value) bool {
	return v == _undefined
}

func IsNull(v Value) bool {
	return v == _null
}

func NewString(s string) Value {
	return valueString(unistring.NewFromString(s))
}

func intToValue(i int64) Value {
	return valueInt(i)
}

func floatToValue(f float64) Value {
	if i := int64(f); float64(i) == f && !(f == 0 && math.Signbit(f)) {
		return valueInt(i)
	}
	return valueFloat(f)
}

// ToValue converts a Go primitive into a Value. Values pass through unchanged,
// nil becomes undefined. Unsupported types panic.
func ToValue(i interface{}) Value {
	switch i := i.(type) {
	case nil:
		return _undefined
	case Value:
		return i
	case bool:
		return valueBool(i)
	case string:
		return NewString(i)
	case int:
		return valueInt(i)
	case int32:
		return valueInt(i)
	case int64:
		return valueInt(i)
	case uint32:
		return valueInt(i)
	case uint64:
		if i <= math.MaxInt64 {
			return valueInt(i)
		}
		return valueFloat(float64(i))
	case float32:
		return floatToValue(float64(i))
	case float64:
		return floatToValue(i)
	}
	panic("kestrel: cannot convert value of this type")
}

func sameNumber(a, b float64) bool {
	if math.IsNaN(a) {
		return math.IsNaN(b)
	}
	if a == 0 && b == 0 {
		return math.Signbit(a) == math.Signbit(b)
	}
	return a == b
}

func (i valueInt) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (i valueInt) SameAs(other Value) bool {
	switch o := other.(type) {
	case valueInt:
		return i == o
	case valueFloat:
		return sameNumber(float64(i), float64(o))
	}
	return false
}

func (i valueInt) Export() interface{} {
	return int64(i)
}

func (f valueFloat) String() string {
	return formatNumber(float64(f))
}

func (f valueFloat) SameAs(other Value) bool {
	switch o := other.(type) {
	case valueFloat:
		return sameNumber(float64(f), float64(o))
	case valueInt:
		return sameNumber(float64(f), float64(o))
	}
	return false
}

func (f valueFloat) Export() interface{} {
	return float64(f)
}

// formatNumber is a close approximation of Number.prototype.toString(10); the
// exact algorithm lives outside this package.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if a := math.Abs(f); a >= 1e21 || a < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go writes e+07 / e-07, ECMAScript writes e+7 / e-7.
		for i := len(s) - 1; i > 0; i-- {
			if s[i] == 'e' {
				exp := s[i+2:]
				for len(exp) > 1 && exp[0] == '0' {
					exp = exp[1:]
				}
				return s[:i+2] + exp
			}
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (b valueBool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b valueBool) SameAs(other Value) bool {
	return other == Value(b)
}

func (b valueBool) Export() interface{} {
	return bool(b)
}

func (n valueNull) String() string {
	return "null"
}

func (n valueNull) SameAs(other Value) bool {
	return other == _null
}

func (n valueNull) Export() interface{} {
	return nil
}

func (u valueUndefined) String() string {
	return "undefined"
}

func (u valueUndefined) SameAs(other Value) bool {
	return other == _undefined
}

func (u valueUndefined) Export() interface{} {
	return nil
}

func (s valueString) String() string {
	return unistring.String(s).String()
}

func (s valueString) SameAs(other Value) bool {
	if o, ok := other.(valueString); ok {
		return s == o
	}
	return false
}

func (s valueString) Export() interface{} {
	return s.String()
}

func (o *Object) String() string {
	return "[object " + o.self.className() + "]"
}

func (o *Object) SameAs(other Value) bool {
	if other, ok := other.(*Object); ok {
		return o == other
	}
	return false
}

func (o *Object) Export() interface{} {
	return o.self.export()
}
