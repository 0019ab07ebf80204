package kestrel

// Symbol is a unique property key. Two symbols are the same key only if they
// are the same pointer, regardless of description.
type Symbol struct {
	desc string
}

var (
	SymIterator    = &Symbol{desc: "Symbol.iterator"}
	SymToStringTag = &Symbol{desc: "Symbol.toStringTag"}
	SymToPrimitive = &Symbol{desc: "Symbol.toPrimitive"}
)

func NewSymbol(desc string) *Symbol {
	return &Symbol{desc: desc}
}

func (s *Symbol) Description() string {
	return s.desc
}

func (s *Symbol) String() string {
	return "Symbol(" + s.desc + ")"
}

func (s *Symbol) SameAs(other Value) bool {
	if s1, ok := other.(*Symbol); ok {
		return s == s1
	}
	return false
}

func (s *Symbol) Export() interface{} {
	return s.String()
}
