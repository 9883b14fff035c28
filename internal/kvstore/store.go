// Package kvstore is the synchronous key/value substrate that browser-side
// state (the cart) is mirrored into.
package kvstore

import (
	"errors"
	"sync"
)

var ErrUnavailable = errors.New("kvstore unavailable")

type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Spaces hands out one Memory per namespace and keeps them for the life of
// the process.
type Spaces struct {
	mu     sync.Mutex
	spaces map[string]*Memory
}

func NewSpaces() *Spaces {
	return &Spaces{spaces: make(map[string]*Memory)}
}

func (s *Spaces) For(namespace string) Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.spaces[namespace]
	if !ok {
		m = NewMemory()
		s.spaces[namespace] = m
	}
	return m
}
