// Package sessions tracks live call sessions so shutdown can cancel them and
// wait for the relays to drain.
package sessions

import (
	"context"
	"sync"
)

type entry struct {
	cancel func()
	once   sync.Once
}

type Tracker struct {
	mu     sync.Mutex
	active map[string]*entry
	wg     sync.WaitGroup
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]*entry)}
}

// Register adds a running call session under its identifier. The returned
// unregister func is idempotent; registering the same identifier twice
// releases the older registration.
func (t *Tracker) Register(id string, cancel func()) (unregister func()) {
	if t == nil {
		return func() {}
	}

	e := &entry{cancel: cancel}

	t.mu.Lock()
	if t.active == nil {
		t.active = make(map[string]*entry)
	}
	old := t.active[id]
	t.active[id] = e
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.release(id, old)
	}

	return func() { t.release(id, e) }
}

func (t *Tracker) release(id string, e *entry) {
	if t == nil || e == nil {
		return
	}
	e.once.Do(func() {
		t.mu.Lock()
		if t.active != nil && t.active[id] == e {
			delete(t.active, id)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// CancelAll aborts every registered session. Sessions unregister themselves
// as their relay loops return.
func (t *Tracker) CancelAll() (canceled int) {
	if t == nil {
		return 0
	}

	var cancels []func()
	t.mu.Lock()
	for _, e := range t.active {
		if e == nil || e.cancel == nil {
			continue
		}
		cancels = append(cancels, e.cancel)
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered session has unregistered, or ctx
// expires. It reports whether the drain completed.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	if ctx == nil {
		t.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
