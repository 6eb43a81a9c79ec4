package engine

import (
	"context"
	"slices"
	"sync"
)

// keyLocks serializes work per task id. A ticket covers a set of ids and is
// granted all at once, in arrival order among tickets that share an id.
// Tickets over disjoint ids never wait on each other.
type keyLocks struct {
	mu      sync.Mutex
	held    map[int]bool
	queue   []*ticket
	changed chan struct{}
}

type ticket struct {
	ids     []int
	granted bool
}

func newKeyLocks() *keyLocks {
	return &keyLocks{
		held:    make(map[int]bool),
		changed: make(chan struct{}),
	}
}

// enqueue registers a ticket and grants it immediately when nothing ahead
// of it holds or waits for one of its ids.
func (k *keyLocks) enqueue(ids []int) *ticket {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := &ticket{ids: ids}
	if k.grantableLocked(t, len(k.queue)) {
		k.grantLocked(t)
		return t
	}
	k.queue = append(k.queue, t)
	return t
}

// wait blocks until t is granted or ctx ends. On ctx end the ticket is
// withdrawn.
func (k *keyLocks) wait(ctx context.Context, t *ticket) error {
	k.mu.Lock()
	for !t.granted {
		if i := slices.Index(k.queue, t); i >= 0 && k.grantableLocked(t, i) {
			k.queue = slices.Delete(k.queue, i, i+1)
			k.grantLocked(t)
			break
		}
		ch := k.changed
		k.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			k.mu.Lock()
			if t.granted {
				k.mu.Unlock()
				return nil
			}
			if i := slices.Index(k.queue, t); i >= 0 {
				k.queue = slices.Delete(k.queue, i, i+1)
			}
			k.broadcastLocked()
			k.mu.Unlock()
			return ctx.Err()
		}
		k.mu.Lock()
	}
	k.mu.Unlock()
	return nil
}

// release frees the ids of a granted ticket.
func (k *keyLocks) release(t *ticket) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !t.granted {
		return
	}
	for _, id := range t.ids {
		delete(k.held, id)
	}
	t.granted = false
	k.broadcastLocked()
}

// grantableLocked reports whether t may run: none of its ids is held and
// no ticket among the first n queued ones shares an id with it.
func (k *keyLocks) grantableLocked(t *ticket, n int) bool {
	for _, id := range t.ids {
		if k.held[id] {
			return false
		}
	}
	for _, q := range k.queue[:n] {
		if overlaps(q.ids, t.ids) {
			return false
		}
	}
	return true
}

func (k *keyLocks) grantLocked(t *ticket) {
	for _, id := range t.ids {
		k.held[id] = true
	}
	t.granted = true
}

func (k *keyLocks) broadcastLocked() {
	close(k.changed)
	k.changed = make(chan struct{})
}

func overlaps(a, b []int) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
