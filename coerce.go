package kestrel

import (
	"math"
	"strconv"
	"strings"

	"github.com/kestrel-js/kestrel/unistring"
)

// Coercer supplies the value conversions this package needs but does not own.
// The default implementation handles primitives; objects convert to NaN and
// "[object X]" since ToPrimitive lives with the interpreter.
type Coercer interface {
	ToPropertyKey(v Value) PropertyKey
	ToNumber(v Value) float64
}

type defaultCoercer struct{}

func (defaultCoercer) ToPropertyKey(v Value) PropertyKey {
	switch v := v.(type) {
	case *Symbol:
		return SymKey(v)
	case valueString:
		return PropertyKey{name: unistring.String(v)}
	}
	return StrKey(v.String())
}

func (defaultCoercer) ToNumber(v Value) float64 {
	switch v := v.(type) {
	case valueInt:
		return float64(v)
	case valueFloat:
		return float64(v)
	case valueBool:
		if v {
			return 1
		}
		return 0
	case valueNull:
		return 0
	case valueString:
		return stringToNumber(v.String())
	}
	return math.NaN()
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if n, err := strconv.ParseUint(s[2:], base, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		}
	}
	if strings.ContainsAny(s, "_xXpP") || strings.HasPrefix(s, "inf") || strings.HasPrefix(s, "Inf") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// toArrayLength reports the uint32 an array length assignment resolves to, and
// whether the number round-trips (ToUint32(n) == n).
func toArrayLength(n float64) (uint32, bool) {
	if n >= 0 && n <= math.MaxUint32 && n == math.Trunc(n) {
		return uint32(n), true
	}
	return 0, false
}
