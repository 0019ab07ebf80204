package kestrel

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameAs(t *testing.T) {
	tests := []struct {
		a, b Value
		same bool
	}{
		{_NaN, floatToValue(math.NaN()), true},
		{_negativeZero, intToValue(0), false},
		{floatToValue(0), intToValue(0), true},
		{floatToValue(2), intToValue(2), true},
		{NewString("1"), intToValue(1), false},
		{_undefined, _null, false},
		{_null, Null(), true},
		{valueTrue, ToValue(true), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.same, tt.a.SameAs(tt.b), "%v SameAs %v", tt.a, tt.b)
	}

	s := NewSymbol("x")
	assert.True(t, s.SameAs(s))
	assert.False(t, s.SameAs(NewSymbol("x")))
}

func TestPropertyKeys(t *testing.T) {
	assert.Equal(t, IdxKey(12), StrKey("12"))
	assert.NotEqual(t, SymKey(NewSymbol("12")), StrKey("12"))

	e := New()
	assert.Equal(t, StrKey("1.5"), e.ToPropertyKey(floatToValue(1.5)))
	assert.Equal(t, IdxKey(3), e.ToPropertyKey(intToValue(3)))
	sym := NewSymbol("s")
	assert.Equal(t, SymKey(sym), e.ToPropertyKey(sym))
	assert.True(t, SymKey(sym).Value().SameAs(sym))
}

func TestErrorKinds(t *testing.T) {
	for k := ExtensibilityError; k <= InvalidDescriptorError; k++ {
		parsed, ok := ParseErrorKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseErrorKind("TypeError")
	assert.False(t, ok)
	assert.Equal(t, "ErrorKind(42)", ErrorKind(42).String())

	var err error = &PropertyError{Kind: ReadOnlyError, Key: StrKey("x"), Message: "m"}
	assert.True(t, errors.Is(err, ErrReadOnly))
	assert.False(t, errors.Is(err, ErrNonConfigurable))
	assert.Equal(t, "ReadOnlyError: m", err.Error())
}

func TestTryPropagatesOtherPanics(t *testing.T) {
	e := New()
	assert.NoError(t, e.Try(func() {}))
	assert.PanicsWithValue(t, "boom", func() {
		_ = e.Try(func() { panic("boom") })
	})
}
