package blobstore

import (
	"context"
	"io"
	"sync"
)

type memoryObject struct {
	contentType string
	content     []byte
}

// MemoryStore is a thread-safe, in-memory Store for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Save(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	if !validName(name) {
		return "", ErrInvalidName
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[name] = memoryObject{contentType: contentType, content: data}
	s.mu.Unlock()
	return name, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) URL(name string) string {
	return "/media/" + name
}

// Get returns the stored content and its content type.
func (s *MemoryStore) Get(name string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[name]
	return obj.content, obj.contentType, ok
}

// Len returns the number of stored files.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
