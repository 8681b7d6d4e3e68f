package clone

import (
	"fmt"
	"sync"
)

// lockRegistry hands out in-process advisory locks keyed by account id.
// Execute locks both the target and the source account for the duration of
// a run, so an account being replaced can never simultaneously serve as a
// clone source. Acquisition is all-or-nothing under one mutex, a second
// request touching a held account fails fast instead of queueing.
type lockRegistry struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{held: make(map[uint]struct{})}
}

// acquire takes locks on every id or none of them.
func (l *lockRegistry) acquire(ids ...uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		if _, taken := l.held[id]; taken {
			return NewError(ErrOperationInProgress,
				fmt.Sprintf("a clone involving account %d is already running", id), nil)
		}
	}
	for _, id := range ids {
		l.held[id] = struct{}{}
	}
	return nil
}

// release frees the given ids. Releasing an unheld id is a no-op.
func (l *lockRegistry) release(ids ...uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		delete(l.held, id)
	}
}
