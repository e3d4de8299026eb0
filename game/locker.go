package game

import "sync"

// Locker serializes work per match id. Different matches never contend.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*matchLock
}

type matchLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*matchLock)}
}

// Lock blocks until id is free and returns the matching unlock func.
func (l *Locker) Lock(id string) func() {
	l.mu.Lock()
	ml, ok := l.locks[id]
	if !ok {
		ml = &matchLock{}
		l.locks[id] = ml
	}
	ml.refs++
	l.mu.Unlock()

	ml.mu.Lock()
	return func() {
		ml.mu.Unlock()
		l.mu.Lock()
		ml.refs--
		if ml.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// held returns how many callers hold or wait on id.
func (l *Locker) held(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ml, ok := l.locks[id]; ok {
		return ml.refs
	}
	return 0
}
