// Package inmemory provides a slice-backed [memory.Provider] guarded by a
// RWMutex. Turns are deep-copied on the way in and on the way out.
package inmemory
