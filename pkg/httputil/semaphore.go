package httputil

import "context"

// defaultCapacity is used when a caller passes a non-positive capacity.
const defaultCapacity = 100

// Semaphore bounds how many outbound calls run at once. The analysis
// and completion paths share one per upstream so a burst of users
// cannot stampede the model endpoint.
type Semaphore struct {
	slots chan struct{}
}

func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot frees up or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
	}
}
