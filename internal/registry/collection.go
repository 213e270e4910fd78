package registry

import (
	"sort"
	"sync"
)

// collection is an id-keyed map guarded by its own RWMutex. Values are cloned on the way
// in and on the way out so no caller shares memory with the store.
type collection[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	idOf  func(T) string
	clone func(T) T
}

func newCollection[T any](idOf func(T) string, clone func(T) T) *collection[T] {
	return &collection[T]{items: make(map[string]T), idOf: idOf, clone: clone}
}

func (c *collection[T]) put(v T) {
	c.mu.Lock()
	c.items[c.idOf(v)] = c.clone(v)
	c.mu.Unlock()
}

func (c *collection[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.clone(v), true
}

func (c *collection[T]) list(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v := c.items[id]
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, c.clone(v))
	}
	return out
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
