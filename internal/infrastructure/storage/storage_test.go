package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coridor/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3DocumentStore_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  *config.StorageConfig
		want string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"missing keys", &config.StorageConfig{Bucket: "docs"}, "access key and secret key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3DocumentStore(ctx, tt.cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	got, err := normalizeEndpoint("minio:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", got)

	got, _ = normalizeEndpoint("s3.example.com", true)
	assert.Equal(t, "https://s3.example.com", got)

	got, _ = normalizeEndpoint("", true)
	assert.Empty(t, got)
}

// fakeS3 records the requests of a path-style S3 client
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	buckets  map[string]bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	switch {
	case r.Method == http.MethodHead && len(parts) == 1:
		if !f.buckets[parts[0]] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	case r.Method == http.MethodPut && len(parts) == 1:
		f.buckets[parts[0]] = true
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.bodies[r.URL.Path] = string(body)
		w.Header().Set("ETag", `"abc"`)
	}
	w.WriteHeader(http.StatusOK)
}

func newFakeS3Store(t *testing.T) (*S3DocumentStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bodies: map[string]string{}, buckets: map[string]bool{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3DocumentStore(context.Background(), &config.StorageConfig{
		Endpoint:  srv.URL,
		Bucket:    "regularization-documents",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		PathStyle: true,
	}, WithLinkExpiry(time.Hour))
	require.NoError(t, err)
	return store, fake
}

func TestS3DocumentStore_Store(t *testing.T) {
	store, fake := newFakeS3Store(t)
	ctx := context.Background()

	link, err := store.Store(ctx, "leases/42/2023.pdf", "application/pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)

	assert.Contains(t, fake.requests, "PUT /regularization-documents/leases/42/2023.pdf")
	assert.Contains(t, link, "/regularization-documents/leases/42/2023.pdf")
	assert.Contains(t, link, "X-Amz-Signature=")
	assert.Contains(t, link, "X-Amz-Expires=3600")

	_, err = store.Store(ctx, "", "application/pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestS3DocumentStore_EnsureBucket(t *testing.T) {
	store, fake := newFakeS3Store(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureBucket(ctx))
	assert.True(t, fake.buckets["regularization-documents"])

	require.NoError(t, store.EnsureBucket(ctx))
	assert.Equal(t, "regularization-documents", store.Bucket())
}

func TestMemoryDocumentStore(t *testing.T) {
	store := NewMemoryDocumentStore("https://files.local/docs")
	ctx := context.Background()

	link, err := store.Store(ctx, "leases/42/2023 final.pdf", "application/pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "https://files.local/docs/leases/42/2023%20final.pdf", link)

	doc, ok := store.Get("leases/42/2023 final.pdf")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, []byte("pdf"), doc.Body)
	assert.Equal(t, 1, store.Len())

	_, err = store.Store(ctx, "", "application/pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyKey)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Store(cancelled, "k", "text/plain", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryDocumentStore_ServeHTTP(t *testing.T) {
	store := NewMemoryDocumentStore("")
	_, err := store.Store(context.Background(), "leases/42/2023 final.pdf", "application/pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	srv := httptest.NewServer(http.StripPrefix("/documents", store))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/documents/leases/42/2023%20final.pdf")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF-1.3", string(body))

	missing, err := http.Get(srv.URL + "/documents/absent.pdf")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
