package utils

import (
	"sync"
)

// OptionalRWMutex is a sync.RWMutex that can be switched off for callers who promise to
// synchronize externally. Readers are used for statistics, writers for placements and resets.
type OptionalRWMutex struct {
	Mutex    sync.RWMutex
	UseMutex bool
}

// NewOptionalRWMutex returns a mutex that only locks when externallySynchronized is false
func NewOptionalRWMutex(externallySynchronized bool) *OptionalRWMutex {
	return &OptionalRWMutex{UseMutex: !externallySynchronized}
}

func (m *OptionalRWMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalRWMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}

func (m *OptionalRWMutex) RLock() {
	if m.UseMutex {
		m.Mutex.RLock()
	}
}

func (m *OptionalRWMutex) RUnlock() {
	if m.UseMutex {
		m.Mutex.RUnlock()
	}
}
