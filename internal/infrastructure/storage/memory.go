package storage

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	regularizationapp "github.com/coridor/backend/internal/application/regularization"
)

var _ regularizationapp.DocumentStore = (*MemoryDocumentStore)(nil)

// StoredDocument is a document held by MemoryDocumentStore
type StoredDocument struct {
	ContentType string
	Body        []byte
}

// MemoryDocumentStore keeps documents in memory. It backs local runs without
// object storage and the tests.
type MemoryDocumentStore struct {
	BaseURL string

	mu   sync.RWMutex
	docs map[string]StoredDocument
}

// NewMemoryDocumentStore creates an empty store serving links under baseURL
func NewMemoryDocumentStore(baseURL string) *MemoryDocumentStore {
	if baseURL == "" {
		baseURL = "http://localhost:8080/documents"
	}
	return &MemoryDocumentStore{BaseURL: baseURL, docs: make(map[string]StoredDocument)}
}

// Store keeps a copy of body and returns its link
func (s *MemoryDocumentStore) Store(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.docs[key] = StoredDocument{ContentType: contentType, Body: append([]byte(nil), body...)}
	s.mu.Unlock()

	return s.BaseURL + "/" + (&url.URL{Path: key}).EscapedPath(), nil
}

// Get returns the document stored under key
func (s *MemoryDocumentStore) Get(key string) (StoredDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	return doc, ok
}

// Len returns the number of stored documents
func (s *MemoryDocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// ServeHTTP serves a stored document by key. Mount it behind
// http.StripPrefix so the request path is the key.
func (s *MemoryDocumentStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	_, _ = w.Write(doc.Body)
}
