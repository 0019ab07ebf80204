package kestrel

// Attr is the attribute set of a property as recorded in its shape.
type Attr uint8

const (
	AttrWritable Attr = 1 << iota
	AttrEnumerable
	AttrConfigurable
	// AttrAccessor marks a slot holding an AccessorCell.
	AttrAccessor
	// AttrLength marks the magic array "length" slot; its value lives in the
	// array store, not in the slot.
	AttrLength

	FullAccess = AttrWritable | AttrEnumerable | AttrConfigurable
)

func (a Attr) Writable() bool     { return a&AttrWritable != 0 }
func (a Attr) Enumerable() bool   { return a&AttrEnumerable != 0 }
func (a Attr) Configurable() bool { return a&AttrConfigurable != 0 }
func (a Attr) IsAccessor() bool   { return a&AttrAccessor != 0 }
func (a Attr) IsLength() bool     { return a&AttrLength != 0 }

// String renders the attributes as "wec" with '-' for absent flags, prefixed
// with "A:" for accessors. Writable is always '-' for accessors.
func (a Attr) String() string {
	b := []byte("---")
	if a.Writable() && !a.IsAccessor() {
		b[0] = 'w'
	}
	if a.Enumerable() {
		b[1] = 'e'
	}
	if a.Configurable() {
		b[2] = 'c'
	}
	if a.IsAccessor() {
		return "A:" + string(b)
	}
	return string(b)
}

type edgeKind uint8

const (
	edgeNone edgeKind = iota
	edgeAdd
	edgeDelete
	edgeModify
)

type transition struct {
	kind  edgeKind
	key   PropertyKey
	attrs Attr
}

type shapeEntry struct {
	slot  int
	attrs Attr
}

// Shape is an immutable node of the ShapeGraph: the set of keys an object has,
// their slot indices and attributes. Slot i always holds the i-th key in
// insertion order.
//
// Add and modify children start out as "parent + pending edge" and only get a
// property map of their own when one is needed.
type Shape struct {
	graph  *ShapeGraph
	parent *Shape
	edge   transition
	// slot of edge.key; valid for add and modify edges
	edgeSlot int
	id       uint32

	props map[PropertyKey]shapeEntry
	keys  []PropertyKey

	size int
	// number of objects that have moved into this shape
	uses int

	transitions map[transition]*Shape
}

// GraphStats are cumulative counters of a ShapeGraph.
type GraphStats struct {
	Nodes            int
	TransitionHits   int
	TransitionMisses int
	Materializations int
	WalkSteps        int
}

// ShapeGraph is the engine-wide, append-only tree of shapes. It is not safe for
// concurrent use; the first creation of every edge must be serialised by the
// embedding.
type ShapeGraph struct {
	root      *Shape
	nextID    uint32
	walkLimit int
	hook      EngineHook
	stats     GraphStats
}

func NewShapeGraph(lazyWalkLimit int) *ShapeGraph {
	g := &ShapeGraph{
		walkLimit: lazyWalkLimit,
	}
	g.root = g.newShape(nil, transition{})
	g.root.props = map[PropertyKey]shapeEntry{}
	return g
}

// Root is the canonical empty shape shared by every fresh object.
func (g *ShapeGraph) Root() *Shape {
	return g.root
}

func (g *ShapeGraph) Stats() GraphStats {
	return g.stats
}

func (g *ShapeGraph) newShape(parent *Shape, t transition) *Shape {
	s := &Shape{
		graph:  g,
		parent: parent,
		edge:   t,
		id:     g.nextID,
	}
	g.nextID++
	g.stats.Nodes++
	return s
}

func (s *Shape) link(t transition, next *Shape) {
	if s.transitions == nil {
		s.transitions = make(map[transition]*Shape, 1)
	}
	s.transitions[t] = next
	s.graph.stats.TransitionMisses++
	if h := s.graph.hook; h != nil {
		h.OnShapeTransition(s, next, true)
	}
}

func (s *Shape) cached(t transition) *Shape {
	next := s.transitions[t]
	if next != nil {
		s.graph.stats.TransitionHits++
		if h := s.graph.hook; h != nil {
			h.OnShapeTransition(s, next, false)
		}
	}
	return next
}

func (s *Shape) ID() uint32 {
	return s.id
}

func (s *Shape) Parent() *Shape {
	return s.parent
}

// Len is the number of properties.
func (s *Shape) Len() int {
	return s.size
}

// NextSlot is the slot index the next added property gets.
func (s *Shape) NextSlot() int {
	return s.size
}

// Uses is how many times an object moved into this shape.
func (s *Shape) Uses() int {
	return s.uses
}

// AddProperty returns the shape with key appended at slot Len(). key must not
// already be present.
func (s *Shape) AddProperty(key PropertyKey, attrs Attr) *Shape {
	t := transition{kind: edgeAdd, key: key, attrs: attrs}
	if next := s.cached(t); next != nil {
		return next
	}
	next := s.graph.newShape(s, t)
	next.edgeSlot = s.size
	next.size = s.size + 1
	s.link(t, next)
	return next
}

// DeleteProperty returns the shape without key, with the remaining slots
// compacted. Deleting an absent key returns s.
func (s *Shape) DeleteProperty(key PropertyKey) *Shape {
	t := transition{kind: edgeDelete, key: key}
	if next := s.cached(t); next != nil {
		return next
	}
	s.materialize()
	if _, exists := s.props[key]; !exists {
		return s
	}
	next := s.graph.newShape(s, t)
	next.size = s.size - 1
	next.props = make(map[PropertyKey]shapeEntry, next.size)
	next.keys = make([]PropertyKey, 0, next.size)
	for _, k := range s.keys {
		if k == key {
			continue
		}
		e := s.props[k]
		e.slot = len(next.keys)
		next.props[k] = e
		next.keys = append(next.keys, k)
	}
	s.link(t, next)
	return next
}

// SetAttributes returns the shape where key has attrs. It returns s itself if
// nothing changes or key is absent.
func (s *Shape) SetAttributes(key PropertyKey, attrs Attr) *Shape {
	slot, cur, ok := s.Lookup(key)
	if !ok || cur == attrs {
		return s
	}
	t := transition{kind: edgeModify, key: key, attrs: attrs}
	if next := s.cached(t); next != nil {
		return next
	}
	next := s.graph.newShape(s, t)
	next.edgeSlot = slot
	next.size = s.size
	s.link(t, next)
	return next
}

// Lookup resolves key to its slot and attributes.
func (s *Shape) Lookup(key PropertyKey) (slot int, attrs Attr, ok bool) {
	if s.props == nil {
		steps := 0
		for n := s; ; n = n.parent {
			if n.props != nil {
				e, ok := n.props[key]
				return e.slot, e.attrs, ok
			}
			if n.edge.key == key {
				return n.edgeSlot, n.edge.attrs, true
			}
			steps++
			s.graph.stats.WalkSteps++
			if steps >= s.graph.walkLimit {
				break
			}
		}
		s.materialize()
	}
	e, ok := s.props[key]
	return e.slot, e.attrs, ok
}

// Keys returns the keys in slot order. The result is a copy.
func (s *Shape) Keys() []PropertyKey {
	keys := s.orderedKeys()
	res := make([]PropertyKey, len(keys))
	copy(res, keys)
	return res
}

// EnumerateKeys calls f for each key in slot order until f returns false.
func (s *Shape) EnumerateKeys(f func(key PropertyKey, slot int, attrs Attr) bool) {
	for i, k := range s.orderedKeys() {
		if !f(k, i, s.props[k].attrs) {
			return
		}
	}
}

// orderedKeys must not be modified by the caller.
func (s *Shape) orderedKeys() []PropertyKey {
	s.materialize()
	return s.keys
}

func (s *Shape) materialize() {
	if s.props != nil {
		return
	}
	var pending []*Shape
	base := s
	for ; base.props == nil; base = base.parent {
		pending = append(pending, base)
	}
	props := make(map[PropertyKey]shapeEntry, s.size)
	for k, e := range base.props {
		props[k] = e
	}
	keys := make([]PropertyKey, len(base.keys), s.size)
	copy(keys, base.keys)
	for i := len(pending) - 1; i >= 0; i-- {
		n := pending[i]
		switch n.edge.kind {
		case edgeAdd:
			keys = append(keys, n.edge.key)
			fallthrough
		case edgeModify:
			props[n.edge.key] = shapeEntry{slot: n.edgeSlot, attrs: n.edge.attrs}
		}
	}
	s.props = props
	s.keys = keys
	s.graph.stats.Materializations++
}

// Transitions returns the number of memoized outgoing edges.
func (s *Shape) Transitions() int {
	return len(s.transitions)
}

func (t transition) String() string {
	switch t.kind {
	case edgeAdd:
		return "+" + t.key.String() + " [" + t.attrs.String() + "]"
	case edgeDelete:
		return "-" + t.key.String()
	case edgeModify:
		return "~" + t.key.String() + " [" + t.attrs.String() + "]"
	}
	return "{}"
}
