package handlers

import (
	"sync"
	"time"
)

// DeliveryTTL is how long a provider message id is remembered after it was queued.
const DeliveryTTL = 15 * time.Minute

// deliveryIDs remembers recently queued provider message ids so a retried
// webhook batch does not queue the same message twice.
type deliveryIDs struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	seen      map[string]time.Time
	lastSweep time.Time
}

func newDeliveryIDs(ttl time.Duration) *deliveryIDs {
	return &deliveryIDs{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

// claim reserves id and reports false if it is already held.
func (d *deliveryIDs) claim(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastSweep) > d.ttl {
		for k, at := range d.seen {
			if now.Sub(at) > d.ttl {
				delete(d.seen, k)
			}
		}
		d.lastSweep = now
	}

	if at, ok := d.seen[id]; ok && now.Sub(at) <= d.ttl {
		return false
	}
	d.seen[id] = now
	return true
}

// release forgets id after a failed enqueue so a retry can queue it.
func (d *deliveryIDs) release(id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}
