package browser

import "context"

// Slots is a counting semaphore bounding in-flight scrape operations. One
// Slots may be shared by several managers to enforce a system-wide ceiling.
type Slots struct {
	ch chan struct{}
}

// NewSlots returns a semaphore with n slots; n below 1 is treated as 1.
func NewSlots(n int) *Slots {
	if n < 1 {
		n = 1
	}
	return &Slots{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *Slots) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (s *Slots) Release() {
	select {
	case <-s.ch:
	default:
	}
}

// InUse reports how many slots are taken.
func (s *Slots) InUse() int { return len(s.ch) }

// Cap reports the ceiling.
func (s *Slots) Cap() int { return cap(s.ch) }
