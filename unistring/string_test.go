package unistring

import "testing"

func TestString_AsUtf16(t *testing.T) {
	const str = "m√°s"
	s := NewFromString(str)

	// BOM, 'm', U+221A, U+00B0, 's'
	if b := s.AsUtf16(); len(b) != 5 || b[0] != BOM {
		t.Fatal(b)
	}

	if s.String() != str {
		t.Fatal(s)
	}
}

func TestString_ASCIIKeepsBytes(t *testing.T) {
	s := NewFromString("length")
	if !s.IsASCII() || string(s) != "length" {
		t.Fatalf("unexpected encoding: %q", string(s))
	}
	if s.Length() != 6 {
		t.Fatal(s.Length())
	}
}

func TestString_SurrogatePairLength(t *testing.T) {
	s := NewFromString("a\U0001F600")
	if s.IsASCII() {
		t.Fatal("expected UTF-16 form")
	}
	if l := s.Length(); l != 3 {
		t.Fatalf("Length: %d", l)
	}
	if s.String() != "a\U0001F600" {
		t.Fatal(s.String())
	}
	if NewFromString("a\U0001F600") != s {
		t.Fatal("equal keys must compare equal")
	}
}
