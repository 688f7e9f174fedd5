// Package locks provides per-entity mutual exclusion for assignment
// operations. Lock order is always driver before car; no caller holds two
// locks of the same kind at once.
package locks

import (
	"strconv"
	"sync"
)

// Keyed hands out one mutex per entity id, separated by namespace so driver
// and car ids never collide.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates an empty keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// LockDriver acquires the lock for a driver id and returns its unlock func.
func (k *Keyed) LockDriver(id int64) func() {
	return k.lock("driver", id)
}

// LockCar acquires the lock for a car id and returns its unlock func.
func (k *Keyed) LockCar(id int64) func() {
	return k.lock("car", id)
}

func (k *Keyed) lock(kind string, id int64) func() {
	key := key(kind, id)

	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

func key(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}
