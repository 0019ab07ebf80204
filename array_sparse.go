package kestrel

const (
	sparseBits   = 5
	sparseFanout = 1 << sparseBits
	sparseMask   = sparseFanout - 1
	// a root at this shift covers the whole uint32 index space
	sparseMaxShift = 30
)

type sparseNode struct {
	// exactly one of kids and items is set
	kids  []*sparseNode
	items []element
	// populated entries of kids or items
	count int
}

func newSparseLeaf() *sparseNode {
	return &sparseNode{items: make([]element, sparseFanout)}
}

func newSparseInner() *sparseNode {
	return &sparseNode{kids: make([]*sparseNode, sparseFanout)}
}

func (n *sparseNode) population() int {
	if n.items != nil {
		return n.count
	}
	total := 0
	for _, kid := range n.kids {
		if kid != nil {
			total += kid.population()
		}
	}
	return total
}

type sparseLeafCache struct {
	start uint32
	leaf  *sparseNode
}

// sparseTrie maps uint32 indices to elements with a fixed fan-out of 32. The
// root grows upwards as larger indices are stored; leaves hold 32 consecutive
// elements.
type sparseTrie struct {
	root *sparseNode
	// shift of the root's child index; 0 if the root is a leaf
	shift uint
	// most recently used leaf
	mru sparseLeafCache
	// populated elements
	count int
	// populated elements whose attributes are not FullAccess
	special int
}

// span is one past the largest index the current root can hold.
func (t *sparseTrie) span() uint64 {
	return uint64(1) << (t.shift + sparseBits)
}

func (t *sparseTrie) leafFor(idx uint32) *sparseNode {
	start := idx &^ sparseMask
	if t.mru.leaf != nil && t.mru.start == start {
		return t.mru.leaf
	}
	if t.root == nil || uint64(idx) >= t.span() {
		return nil
	}
	n := t.root
	for sh := t.shift; sh > 0; sh -= sparseBits {
		n = n.kids[(idx>>sh)&sparseMask]
		if n == nil {
			return nil
		}
	}
	t.mru = sparseLeafCache{start: start, leaf: n}
	return n
}

func (t *sparseTrie) get(idx uint32) *element {
	leaf := t.leafFor(idx)
	if leaf == nil {
		return nil
	}
	el := &leaf.items[idx&sparseMask]
	if !el.present() {
		return nil
	}
	return el
}

func (t *sparseTrie) set(idx uint32, el element) {
	leaf := t.leafFor(idx)
	if leaf == nil {
		leaf = t.makeLeaf(idx)
	}
	cur := &leaf.items[idx&sparseMask]
	if cur.present() {
		if cur.attrs != FullAccess {
			t.special--
		}
	} else {
		leaf.count++
		t.count++
	}
	if el.attrs != FullAccess {
		t.special++
	}
	*cur = el
}

func (t *sparseTrie) makeLeaf(idx uint32) *sparseNode {
	if t.root == nil {
		t.root = newSparseLeaf()
		t.shift = 0
	}
	for uint64(idx) >= t.span() && t.shift < sparseMaxShift {
		root := newSparseInner()
		root.kids[0] = t.root
		root.count = 1
		t.root = root
		t.shift += sparseBits
	}
	n := t.root
	for sh := t.shift; sh > 0; sh -= sparseBits {
		i := (idx >> sh) & sparseMask
		kid := n.kids[i]
		if kid == nil {
			if sh == sparseBits {
				kid = newSparseLeaf()
			} else {
				kid = newSparseInner()
			}
			n.kids[i] = kid
			n.count++
		}
		n = kid
	}
	t.mru = sparseLeafCache{start: idx &^ sparseMask, leaf: n}
	return n
}

func (t *sparseTrie) delete(idx uint32) {
	if t.root == nil || uint64(idx) >= t.span() {
		return
	}
	var path [sparseMaxShift/sparseBits + 1]*sparseNode
	depth := 0
	n := t.root
	for sh := t.shift; sh > 0; sh -= sparseBits {
		path[depth] = n
		depth++
		n = n.kids[(idx>>sh)&sparseMask]
		if n == nil {
			return
		}
	}
	el := &n.items[idx&sparseMask]
	if !el.present() {
		return
	}
	if el.attrs != FullAccess {
		t.special--
	}
	*el = element{}
	n.count--
	t.count--
	if n.count > 0 {
		return
	}
	if t.mru.leaf == n {
		t.mru = sparseLeafCache{}
	}
	// prune empty nodes bottom-up
	sh := uint(sparseBits)
	for d := depth - 1; d >= 0; d-- {
		parent := path[d]
		parent.kids[(idx>>sh)&sparseMask] = nil
		parent.count--
		if parent.count > 0 {
			return
		}
		sh += sparseBits
	}
	t.root = nil
	t.shift = 0
}

// truncate removes every element with index >= n.
func (t *sparseTrie) truncate(n uint32) {
	if t.root == nil {
		return
	}
	t.mru = sparseLeafCache{}
	if t.truncateNode(t.root, t.shift, 0, uint64(n)) {
		t.root = nil
		t.shift = 0
	}
}

// truncateNode reports whether node became empty.
func (t *sparseTrie) truncateNode(node *sparseNode, shift uint, base, n uint64) bool {
	if node.items != nil {
		for i := range node.items {
			el := &node.items[i]
			if base+uint64(i) < n || !el.present() {
				continue
			}
			if el.attrs != FullAccess {
				t.special--
			}
			*el = element{}
			node.count--
			t.count--
		}
		return node.count == 0
	}
	width := uint64(1) << shift
	for i, kid := range node.kids {
		if kid == nil {
			continue
		}
		kbase := base + uint64(i)*width
		switch {
		case kbase >= n:
			t.dropSubtree(kid)
		case kbase+width > n:
			if !t.truncateNode(kid, shift-sparseBits, kbase, n) {
				continue
			}
		default:
			continue
		}
		node.kids[i] = nil
		node.count--
	}
	return node.count == 0
}

func (t *sparseTrie) dropSubtree(node *sparseNode) {
	if node.items != nil {
		for i := range node.items {
			if el := &node.items[i]; el.present() {
				if el.attrs != FullAccess {
					t.special--
				}
				t.count--
			}
		}
		return
	}
	for _, kid := range node.kids {
		if kid != nil {
			t.dropSubtree(kid)
		}
	}
}

// ascend calls f for every element with index >= from in ascending order
// until f returns false.
func (t *sparseTrie) ascend(from uint32, f func(idx uint32, el *element) bool) {
	if t.root == nil {
		return
	}
	t.ascendNode(t.root, t.shift, 0, uint64(from), f)
}

func (t *sparseTrie) ascendNode(node *sparseNode, shift uint, base, from uint64, f func(uint32, *element) bool) bool {
	if node.items != nil {
		for i := range node.items {
			idx := base + uint64(i)
			if idx < from || !node.items[i].present() {
				continue
			}
			if !f(uint32(idx), &node.items[i]) {
				return false
			}
		}
		return true
	}
	width := uint64(1) << shift
	for i, kid := range node.kids {
		kbase := base + uint64(i)*width
		if kid == nil || kbase+width <= from {
			continue
		}
		if !t.ascendNode(kid, shift-sparseBits, kbase, from, f) {
			return false
		}
	}
	return true
}

// depth is the number of levels, leaves included.
func (t *sparseTrie) depth() int {
	if t.root == nil {
		return 0
	}
	return int(t.shift/sparseBits) + 1
}
