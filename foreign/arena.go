package foreign

// arena is the slot storage behind a Store. Freed entries are recycled
// through a free list and their generation is bumped on release, so a handle
// issued before the release no longer matches.
type arena struct {
	entries  []entry
	freeList []uint32
	live     int
}

type entry struct {
	value any
	class *Class
	gen   uint32
	valid bool
}

func newArena() *arena {
	return &arena{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

func (a *arena) insert(class *Class, value any) Handle {
	a.live++
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		e := &a.entries[idx-1]
		e.value = value
		e.class = class
		e.valid = true
		return makeHandle(idx, e.gen)
	}

	a.entries = append(a.entries, entry{
		value: value,
		class: class,
		gen:   1,
		valid: true,
	})
	return makeHandle(uint32(len(a.entries)), 1)
}

// lookup returns the live entry for h, or nil.
func (a *arena) lookup(h Handle) *entry {
	idx := h.index()
	if idx == 0 || int(idx) > len(a.entries) {
		return nil
	}
	e := &a.entries[idx-1]
	if !e.valid || e.gen != h.generation() {
		return nil
	}
	return e
}

// release invalidates h and returns the entry's previous contents.
func (a *arena) release(h Handle) (any, *Class, bool) {
	e := a.lookup(h)
	if e == nil {
		return nil, nil, false
	}

	value, class := e.value, e.class
	e.value = nil
	e.class = nil
	e.valid = false
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	a.freeList = append(a.freeList, h.index())
	a.live--
	return value, class, true
}

func (a *arena) each(fn func(Handle, *Class, any) bool) {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.valid {
			continue
		}
		if !fn(makeHandle(uint32(i+1), e.gen), e.class, e.value) {
			return
		}
	}
}
