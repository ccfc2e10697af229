package database

import (
	"cagchat/internal/errs"
	"cagchat/internal/utils"
	"context"
	"fmt"
	"sort"
	"sync"
)

// DocumentStore keeps extracted documents keyed by their client identifier.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]utils.Document
}

var _ DocumentRepository = (*DocumentStore)(nil)

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]utils.Document)}
}

func (s *DocumentStore) Exists(_ context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[id]
	return ok
}

func (s *DocumentStore) Get(_ context.Context, id string) (utils.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return utils.Document{}, fmt.Errorf("document %s: %w", id, errs.ErrNotFound)
	}
	return doc, nil
}

// Create inserts d unless its identifier is already taken.
func (s *DocumentStore) Create(_ context.Context, d utils.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[d.ID]; exists {
		return fmt.Errorf("document %s: %w", d.ID, errs.ErrAlreadyExists)
	}
	s.docs[d.ID] = d
	return nil
}

// Append adds text after a blank line. Only the text of the record changes.
func (s *DocumentStore) Append(_ context.Context, id, text string) (utils.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return utils.Document{}, fmt.Errorf("document %s: %w", id, errs.ErrNotFound)
	}
	doc.Text += "\n\n" + text
	s.docs[id] = doc
	return doc, nil
}

func (s *DocumentStore) Delete(_ context.Context, id string) (utils.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return utils.Document{}, fmt.Errorf("document %s: %w", id, errs.ErrNotFound)
	}
	delete(s.docs, id)
	return doc, nil
}

// List returns every document ordered by identifier.
func (s *DocumentStore) List(_ context.Context) []utils.DocumentInfo {
	s.mu.RLock()
	items := make([]utils.DocumentInfo, 0, len(s.docs))
	for _, doc := range s.docs {
		items = append(items, doc.Info())
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *DocumentStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]utils.Document)
}
