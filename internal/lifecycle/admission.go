package lifecycle

import (
	"context"
	"time"
)

// AcquireSlot reserves a queue slot and then the single in-flight inference
// slot. The forward pass is not reentrant on the runtime, so at most one
// prediction runs at a time; health and status reads stay unaffected.
// Returns a release func to be deferred.
func (m *Manager) AcquireSlot(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context.
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{}
	}
	return m.acquireGen(ctx)
}

func (m *Manager) acquireGen(ctx context.Context) (func(), error) {
	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{}
	}
}

// QueueDepth reports the current queue occupancy and capacity.
func (m *Manager) QueueDepth() (used, capacity int) {
	return len(m.queueCh), cap(m.queueCh)
}
