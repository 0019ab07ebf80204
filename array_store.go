package kestrel

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

type ArrayMode uint8

const (
	Dense ArrayMode = iota
	Sparse
)

func (m ArrayMode) String() string {
	if m == Sparse {
		return "sparse"
	}
	return "dense"
}

// element is an indexed property. The zero value is a hole.
type element struct {
	value    Value
	accessor *AccessorCell
	attrs    Attr
}

func (el *element) present() bool {
	return el.value != nil || el.accessor != nil
}

func (el *element) prop() ownProp {
	return ownProp{value: el.value, accessor: el.accessor, attrs: el.attrs, slot: -1}
}

// ArrayStore holds the indexed elements of an array. It starts dense and moves
// to a sparse trie, irreversibly, when a write lands too far beyond the dense
// buffer.
type ArrayStore struct {
	mode   ArrayMode
	length uint32
	count  int

	// dense buffer; len(dense) is the capacity, entries at or above length are holes
	dense []element
	// dense indices whose attributes are not FullAccess
	special bitset.BitSet

	sparse *sparseTrie

	slack int
	// called once, when the store switches to sparse
	onPromote func(length, index uint32)
}

func NewArrayStore(growthSlack int) *ArrayStore {
	return &ArrayStore{slack: growthSlack}
}

func (a *ArrayStore) Mode() ArrayMode {
	return a.mode
}

func (a *ArrayStore) Length() uint32 {
	return a.length
}

// Count is the number of populated indices.
func (a *ArrayStore) Count() int {
	return a.count
}

// Capacity is the size of the dense buffer; 0 once sparse.
func (a *ArrayStore) Capacity() int {
	return len(a.dense)
}

func (a *ArrayStore) elem(idx uint32) *element {
	if idx >= a.length {
		return nil
	}
	if a.mode == Sparse {
		return a.sparse.get(idx)
	}
	if int64(idx) < int64(len(a.dense)) {
		if el := &a.dense[idx]; el.present() {
			return el
		}
	}
	return nil
}

// Get returns the value at idx. Holes and indices past Length report false.
// Accessor elements report a nil value.
func (a *ArrayStore) Get(idx uint32) (Value, bool) {
	if el := a.elem(idx); el != nil {
		return el.value, true
	}
	return nil, false
}

// Set writes v at idx, keeping the attributes of an existing element, and
// extends Length if needed. idx must not exceed MaxIndex.
func (a *ArrayStore) Set(idx uint32, v Value) {
	if el := a.elem(idx); el != nil {
		el.value = v
		return
	}
	a.setElem(idx, element{value: v, attrs: FullAccess})
}

func (a *ArrayStore) setElem(idx uint32, el element) {
	if a.mode == Dense && int64(idx) >= int64(len(a.dense)) {
		capacity := uint64(len(a.dense))
		if uint64(idx) < capacity*2+uint64(a.slack) {
			a.grow(int(capacity*2) + a.slack)
		} else {
			a.promote(idx)
		}
	}
	if a.mode == Sparse {
		before := a.sparse.count
		a.sparse.set(idx, el)
		a.count += a.sparse.count - before
	} else {
		cur := &a.dense[idx]
		if !cur.present() {
			a.count++
		}
		*cur = el
		if el.attrs != FullAccess {
			a.special.Set(uint(idx))
		} else {
			a.special.Clear(uint(idx))
		}
	}
	if idx >= a.length {
		a.length = idx + 1
	}
}

func (a *ArrayStore) grow(n int) {
	dense := make([]element, n)
	copy(dense, a.dense)
	a.dense = dense
}

func (a *ArrayStore) promote(idx uint32) {
	t := &sparseTrie{}
	limit := len(a.dense)
	if int64(a.length) < int64(limit) {
		limit = int(a.length)
	}
	for i := 0; i < limit; i++ {
		if el := a.dense[i]; el.present() {
			t.set(uint32(i), el)
		}
	}
	a.sparse = t
	a.dense = nil
	a.special.ClearAll()
	a.mode = Sparse
	if a.onPromote != nil {
		a.onPromote(a.length, idx)
	}
}

// Delete turns idx into a hole. Length is unchanged.
func (a *ArrayStore) Delete(idx uint32) {
	if a.elem(idx) == nil {
		return
	}
	a.count--
	if a.mode == Sparse {
		a.sparse.delete(idx)
		return
	}
	a.dense[idx] = element{}
	a.special.Clear(uint(idx))
}

// SetLength changes Length. Shrinking removes every element at or above the
// new length, except that it stops above the highest non-configurable
// element; the resulting length is returned with ok == false in that case.
// Growing only moves the bound.
func (a *ArrayStore) SetLength(n uint32) (uint32, bool) {
	if n >= a.length {
		a.length = n
		return n, true
	}
	ok := true
	if idx, found := a.lastNonConfigurable(n); found {
		n = idx + 1
		ok = false
	}
	if a.mode == Sparse {
		before := a.sparse.count
		a.sparse.truncate(n)
		a.count -= before - a.sparse.count
	} else {
		end := len(a.dense)
		if int64(a.length) < int64(end) {
			end = int(a.length)
		}
		for i := int(n); i < end; i++ {
			if a.dense[i].present() {
				a.count--
			}
			a.dense[i] = element{}
			a.special.Clear(uint(i))
		}
		if int64(n) < int64(len(a.dense)) {
			a.dense = a.dense[:n]
		}
	}
	a.length = n
	return n, ok
}

// lastNonConfigurable finds the highest non-configurable element at or above from.
func (a *ArrayStore) lastNonConfigurable(from uint32) (uint32, bool) {
	var last uint32
	found := false
	if a.mode == Sparse {
		if a.sparse.special == 0 {
			return 0, false
		}
		a.sparse.ascend(from, func(idx uint32, el *element) bool {
			if !el.attrs.Configurable() {
				last, found = idx, true
			}
			return true
		})
		return last, found
	}
	for i, ok := a.special.NextSet(uint(from)); ok; i, ok = a.special.NextSet(i + 1) {
		if i >= uint(len(a.dense)) {
			break
		}
		if el := &a.dense[i]; el.present() && !el.attrs.Configurable() {
			last, found = uint32(i), true
		}
	}
	return last, found
}

// Ascend calls f for every populated index in ascending order until f
// returns false. Accessor elements report a nil value.
func (a *ArrayStore) Ascend(f func(idx uint32, v Value) bool) {
	a.ascend(0, func(idx uint32, el *element) bool {
		return f(idx, el.value)
	})
}

func (a *ArrayStore) ascend(from uint32, f func(idx uint32, el *element) bool) {
	if a.mode == Sparse {
		a.sparse.ascend(from, func(idx uint32, el *element) bool {
			if idx >= a.length {
				return false
			}
			return f(idx, el)
		})
		return
	}
	end := uint64(len(a.dense))
	if uint64(a.length) < end {
		end = uint64(a.length)
	}
	for i := uint64(from); i < end; i++ {
		if el := &a.dense[i]; el.present() {
			if !f(uint32(i), el) {
				return
			}
		}
	}
}

// Indices returns the populated indices in ascending order.
func (a *ArrayStore) Indices() []uint32 {
	res := make([]uint32, 0, a.count)
	a.ascend(0, func(idx uint32, _ *element) bool {
		res = append(res, idx)
		return true
	})
	return res
}

// maxLength is the largest value Length can take.
const maxLength = math.MaxUint32
