package kestrel

// CacheState is the state of an InlineCache.
type CacheState uint8

const (
	CacheUninitialized CacheState = iota
	CacheMonomorphic
	CachePolymorphic
	// CacheMegamorphic caches nothing; every access does a full lookup.
	CacheMegamorphic
)

func (s CacheState) String() string {
	switch s {
	case CacheMonomorphic:
		return "monomorphic"
	case CachePolymorphic:
		return "polymorphic"
	case CacheMegamorphic:
		return "megamorphic"
	}
	return "uninitialized"
}

type cacheEntry struct {
	shape *Shape
	slot  int
	attrs Attr
}

// CacheStats are the counters of one InlineCache.
type CacheStats struct {
	State   CacheState
	Entries int
	Hits    uint64
	Misses  uint64
}

// InlineCache remembers where a fixed key lives for the shapes seen at one
// access site. An entry is valid for an object iff the object's shape is the
// cached shape; shape transitions therefore invalidate entries implicitly.
//
// Only own data properties stored in shape slots are cached. Accessors, the
// array length and index keys always take the slow path.
type InlineCache struct {
	key     PropertyKey
	state   CacheState
	entries []cacheEntry
	limit   int
	hits    uint64
	misses  uint64
}

// NewInlineCache creates a cache for key that keeps up to polymorphism
// shapes before going megamorphic. Zero means 4.
func NewInlineCache(key PropertyKey, polymorphism int) *InlineCache {
	if polymorphism <= 0 {
		polymorphism = 4
	}
	return &InlineCache{
		key:   key,
		limit: polymorphism,
	}
}

// NewInlineCache creates a cache sized by the engine's config.
func (e *Engine) NewInlineCache(key PropertyKey) *InlineCache {
	return NewInlineCache(key, e.cfg.ICPolymorphism)
}

func (ic *InlineCache) Key() PropertyKey {
	return ic.key
}

func (ic *InlineCache) lookup(shape *Shape) *cacheEntry {
	for i := range ic.entries {
		if ic.entries[i].shape == shape {
			if i > 0 {
				// move to front
				entry := ic.entries[i]
				copy(ic.entries[1:i+1], ic.entries[0:i])
				ic.entries[0] = entry
			}
			return &ic.entries[0]
		}
	}
	return nil
}

func (ic *InlineCache) update(shape *Shape, slot int, attrs Attr) {
	switch ic.state {
	case CacheMegamorphic:
		return
	case CacheUninitialized:
		ic.state = CacheMonomorphic
	case CacheMonomorphic, CachePolymorphic:
		if len(ic.entries) >= ic.limit {
			ic.state = CacheMegamorphic
			ic.entries = nil
			return
		}
		if len(ic.entries) > 0 {
			ic.state = CachePolymorphic
		}
	}
	ic.entries = append(ic.entries, cacheEntry{shape: shape, slot: slot, attrs: attrs})
}

func (ic *InlineCache) cacheable() bool {
	_, isIdx := ic.key.index()
	return !isIdx
}

// fill caches the own slot of key on obj, if it has one that qualifies.
func (ic *InlineCache) fill(b *baseObject) {
	if ic.state == CacheMegamorphic || !ic.cacheable() {
		return
	}
	slot, attrs, ok := b.shape.Lookup(ic.key)
	if !ok || attrs.IsAccessor() || attrs.IsLength() {
		return
	}
	ic.update(b.shape, slot, attrs)
}

// Read is obj.Get(key) with a fast path for cached shapes.
func (ic *InlineCache) Read(obj *Object) Value {
	b := obj.self.base()
	if e := ic.lookup(b.shape); e != nil {
		ic.hits++
		return b.slots[e.slot].value
	}
	ic.misses++
	v := obj.Get(ic.key)
	ic.fill(b)
	return v
}

// Write is obj.Set(key, v, throw) with a fast path for cached shapes where
// the property is writable.
func (ic *InlineCache) Write(obj *Object, v Value, throw bool) bool {
	b := obj.self.base()
	if e := ic.lookup(b.shape); e != nil && e.attrs.Writable() {
		ic.hits++
		b.slots[e.slot].value = v
		return true
	}
	ic.misses++
	ok := obj.Set(ic.key, v, throw)
	if ok {
		ic.fill(b)
	}
	return ok
}

// Reset forgets all entries; counters are kept.
func (ic *InlineCache) Reset() {
	ic.state = CacheUninitialized
	ic.entries = nil
}

func (ic *InlineCache) Stats() CacheStats {
	return CacheStats{
		State:   ic.state,
		Entries: len(ic.entries),
		Hits:    ic.hits,
		Misses:  ic.misses,
	}
}
