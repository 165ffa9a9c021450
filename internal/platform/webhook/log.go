package webhook

import (
	"context"
	"sync"
)

// DeliveryLog stores delivery attempts for later inspection.
type DeliveryLog interface {
	Record(ctx context.Context, d *Delivery) error
	// List returns owner's attempts newest first, plus the total count.
	List(ctx context.Context, owner string, limit, offset int) ([]*Delivery, int, error)
}

// RingLog keeps the most recent attempts in memory, dropping the oldest once
// capacity is reached.
type RingLog struct {
	mu    sync.RWMutex
	items []*Delivery
	next  int
	full  bool
}

func NewRingLog(capacity int) *RingLog {
	if capacity <= 0 {
		capacity = 500
	}
	return &RingLog{items: make([]*Delivery, capacity)}
}

func (r *RingLog) Record(_ context.Context, d *Delivery) error {
	cp := *d
	r.mu.Lock()
	r.items[r.next] = &cp
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
	return nil
}

func (r *RingLog) List(_ context.Context, owner string, limit, offset int) ([]*Delivery, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.items)
	}
	var matched []*Delivery
	for i := 1; i <= n; i++ {
		d := r.items[(r.next-i+len(r.items))%len(r.items)]
		if d.Owner == owner {
			matched = append(matched, d)
		}
	}

	total := len(matched)
	if offset >= total {
		return []*Delivery{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
