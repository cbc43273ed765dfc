// Package storage is the durable key-value port behind collections and
// session preferences. Callers depend on the Store interface only; the
// SQLite implementation backs real runs and Memory backs tests.
package storage

import "sync"

// Fixed keys for persisted state. The v1 suffix leaves room for future
// format migrations without clobbering old data.
const (
	KeyRecents   = "imagegen.recents.v1"
	KeyProfiles  = "imagegen.profiles.v1"
	KeyTemplates = "imagegen.templates.v1"
	KeyAutoSync  = "imagegen.autosync.v1"
	KeyFormat    = "imagegen.format.v1"
	KeyTheme     = "app.theme"
)

// Store is a flat string key-value store. Writes are last-writer-wins;
// a single process owns each store for the lifetime of the editing
// surface.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Memory is an in-process Store for tests.
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
