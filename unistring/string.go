// Package unistring holds the representation used for string property keys.
// ASCII keys are stored as-is; anything else is stored as UTF-16 code units
// prefixed with a BOM, so two keys compare equal iff their UTF-16 forms do.
package unistring

import (
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"
)

const (
	BOM = 0xFEFF
)

type String string

func NewFromString(s string) String {
	ascii := true
	size := 0
	for _, c := range s {
		if c >= utf8.RuneSelf {
			ascii = false
			if c > 0xFFFF {
				size++
			}
		}
		size++
	}
	if ascii {
		return String(s)
	}
	b := make([]uint16, size+1)
	b[0] = BOM
	i := 1
	for _, c := range s {
		if c <= 0xFFFF {
			b[i] = uint16(c)
		} else {
			first, second := utf16.EncodeRune(c)
			b[i] = uint16(first)
			i++
			b[i] = uint16(second)
		}
		i++
	}
	return FromUtf16(b)
}

// FromUtf16 wraps b (which must start with BOM) without copying.
func FromUtf16(b []uint16) String {
	return String(unsafe.String((*byte)(unsafe.Pointer(&b[0])), len(b)*2))
}

func (s String) String() string {
	if b := s.AsUtf16(); b != nil {
		return string(utf16.Decode(b[1:]))
	}

	return string(s)
}

// Length returns the length in UTF-16 code units.
func (s String) Length() int {
	if b := s.AsUtf16(); b != nil {
		return len(b) - 1
	}
	return len(s)
}

func (s String) IsASCII() bool {
	return s.AsUtf16() == nil
}

func (s String) AsUtf16() []uint16 {
	if len(s) < 4 || len(s)&1 != 0 {
		return nil
	}
	raw := string(s)
	a := unsafe.Slice((*uint16)(unsafe.Pointer(unsafe.StringData(raw))), len(raw)/2)
	if a[0] == BOM {
		return a
	}

	return nil
}
