// Package provider holds what the environment data providers share.
package provider

import "sync"

// Latest keeps the most recent value fetched from a provider. The zero
// value is empty and ready to use.
type Latest[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool
}

// Store replaces the held value.
func (l *Latest[T]) Store(v T) {
	l.mu.Lock()
	l.value, l.set = v, true
	l.mu.Unlock()
}

// Load returns the held value and whether one was ever stored.
func (l *Latest[T]) Load() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.set
}
