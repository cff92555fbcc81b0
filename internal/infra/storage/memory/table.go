package memory

// table holds committed rows. Callers hold Store.mu.
type table[K comparable, V any] map[K]V

// staged overlays the writes of one unit on a committed table.
type staged[K comparable, V any] struct {
	base  table[K, V]
	puts  map[K]V
	dels  map[K]struct{}
	clone func(V) V
}

func newStaged[K comparable, V any](base table[K, V], clone func(V) V) *staged[K, V] {
	return &staged[K, V]{
		base:  base,
		puts:  make(map[K]V),
		dels:  make(map[K]struct{}),
		clone: clone,
	}
}

// peek returns the current row without copying it. The result must not be mutated.
func (s *staged[K, V]) peek(k K) (V, bool) {
	var zero V
	if _, gone := s.dels[k]; gone {
		return zero, false
	}
	if v, ok := s.puts[k]; ok {
		return v, true
	}
	v, ok := s.base[k]
	return v, ok
}

func (s *staged[K, V]) get(k K) (V, bool) {
	v, ok := s.peek(k)
	if !ok {
		return v, false
	}
	return s.clone(v), true
}

func (s *staged[K, V]) put(k K, v V) {
	delete(s.dels, k)
	s.puts[k] = s.clone(v)
}

func (s *staged[K, V]) del(k K) {
	delete(s.puts, k)
	s.dels[k] = struct{}{}
}

// scan visits every visible row without copying; fn must not mutate it.
func (s *staged[K, V]) scan(fn func(K, V)) {
	for k, v := range s.base {
		if _, gone := s.dels[k]; gone {
			continue
		}
		if _, shadowed := s.puts[k]; shadowed {
			continue
		}
		fn(k, v)
	}
	for k, v := range s.puts {
		fn(k, v)
	}
}

// apply writes the staged rows into the committed table. Callers hold Store.mu for writing.
func (s *staged[K, V]) apply() {
	for k := range s.dels {
		delete(s.base, k)
	}
	for k, v := range s.puts {
		s.base[k] = v
	}
}
