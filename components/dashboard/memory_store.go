package dashboard

import (
	"context"
	"sync"
)

// InMemoryLayoutStore is a concurrency-safe LayoutStore for tests and demos.
type InMemoryLayoutStore struct {
	mu   sync.RWMutex
	data map[string]Document
	puts int
}

// NewInMemoryLayoutStore creates an empty store.
func NewInMemoryLayoutStore() *InMemoryLayoutStore {
	return &InMemoryLayoutStore{
		data: make(map[string]Document),
	}
}

// Get returns a copy of the stored document or ErrDocumentNotFound.
func (s *InMemoryLayoutStore) Get(_ context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, ErrMissingUser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.data[userID]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return cloneDocument(doc), nil
}

// Put replaces the stored document of userID.
func (s *InMemoryLayoutStore) Put(_ context.Context, userID string, doc Document) error {
	if userID == "" {
		return ErrMissingUser
	}
	doc.UserID = userID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = cloneDocument(doc)
	s.puts++
	return nil
}

// Puts returns the number of successful writes.
func (s *InMemoryLayoutStore) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

func cloneDocument(doc Document) Document {
	out := doc
	out.Layouts = doc.Layouts.Clone()
	out.Reports = make(map[string]Report, len(doc.Reports))
	for id, report := range doc.Reports {
		out.Reports[id] = report
	}
	return out
}
