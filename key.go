package kestrel

import (
	"math"
	"strconv"

	"github.com/kestrel-js/kestrel/unistring"
)

// MaxIndex is the largest valid array index. 2^32-1 is reserved so that
// length can always be one greater than the highest index.
const MaxIndex = math.MaxUint32 - 1

// PropertyKey is either a string or a symbol. The zero value is the empty string key.
type PropertyKey struct {
	name unistring.String
	sym  *Symbol
}

var lengthKey = StrKey("length")

func StrKey(s string) PropertyKey {
	return PropertyKey{name: unistring.NewFromString(s)}
}

func SymKey(s *Symbol) PropertyKey {
	return PropertyKey{sym: s}
}

func IdxKey(idx uint32) PropertyKey {
	return PropertyKey{name: unistring.String(strconv.FormatUint(uint64(idx), 10))}
}

func (k PropertyKey) IsSymbol() bool {
	return k.sym != nil
}

func (k PropertyKey) Symbol() *Symbol {
	return k.sym
}

func (k PropertyKey) String() string {
	if k.sym != nil {
		return k.sym.String()
	}
	return k.name.String()
}

// Value returns the key as a script value (a string or a symbol).
func (k PropertyKey) Value() Value {
	if k.sym != nil {
		return k.sym
	}
	return valueString(k.name)
}

func (k PropertyKey) index() (uint32, bool) {
	if k.sym != nil {
		return 0, false
	}
	return strToIdx(string(k.name))
}

// ParseIndex reports whether s is a canonical array index: decimal digits only,
// no redundant leading zero, value at most MaxIndex.
func ParseIndex(s string) (uint32, bool) {
	return strToIdx(s)
}

func strToIdx(s string) (uint32, bool) {
	l := len(s)
	if l == 0 || l > 10 {
		return 0, false
	}
	if s[0] == '0' {
		return 0, l == 1
	}
	var n uint64
	for i := 0; i < l; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	if n > MaxIndex {
		return 0, false
	}
	return uint32(n), true
}
