package engine

import (
	"sort"
	"sync"
)

// cardLocks serializes cap-affecting writes per card. Locks are never
// released from the map; a user has a handful of cards.
type cardLocks struct {
	locks map[string]*sync.Mutex
	mu    sync.Mutex
}

func newCardLocks() *cardLocks {
	return &cardLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the locks for every given card in a fixed order and returns
// a function releasing them.
func (c *cardLocks) lock(cardIDs ...string) func() {
	ids := make([]string, 0, len(cardIDs))
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := c.get(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (c *cardLocks) get(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.locks[id]
	if !ok {
		m = &sync.Mutex{}
		c.locks[id] = m
	}
	return m
}
