package locks

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker hands out named mutual-exclusion locks. Acquire blocks until the lock is held or ctx
// is done; the context deadline is the bounded wait. The returned release func is safe to call
// more than once.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Local is an in-process Locker. Entries are dropped once nobody holds or waits on them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Acquire(ctx context.Context, name string) (func(), error) {
	e := l.ref(name)
	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.unref(name)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.unref(name)
		})
	}, nil
}

func (l *Local) ref(name string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[name]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.locks[name] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.locks[name]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, name)
	}
}
