package normalize

// OrderedSet is a string set that remembers insertion order.
// The zero value is ready to use.
type OrderedSet struct {
	index map[string]struct{}
	items []string
}

// NewOrderedSet returns a set sized for n items.
func NewOrderedSet(n int) *OrderedSet {
	return &OrderedSet{
		index: make(map[string]struct{}, n),
		items: make([]string, 0, n),
	}
}

// Add inserts v and reports whether it was not already present.
func (s *OrderedSet) Add(v string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Contains reports whether v has been added.
func (s *OrderedSet) Contains(v string) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of distinct items.
func (s *OrderedSet) Len() int {
	return len(s.items)
}

// Items returns the items in first-insertion order. The slice is shared with the set.
func (s *OrderedSet) Items() []string {
	return s.items
}
