package memstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"chatterbox/internal/domain/service"
	"chatterbox/pkg/errors"
)

// BlobStore keeps uploaded media in memory for STORE_BACKEND=memory.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	fail  error
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// FailWith makes every following Upload return err; nil clears it.
func (b *BlobStore) FailWith(err error) {
	b.mu.Lock()
	b.fail = err
	b.mu.Unlock()
}

func (b *BlobStore) Upload(ctx context.Context, file io.Reader, contentType string) (service.UploadResult, error) {
	b.mu.Lock()
	fail := b.fail
	b.mu.Unlock()
	if fail != nil {
		return service.UploadResult{}, fail
	}

	if contentType == "" || contentType == "application/octet-stream" {
		detected, rest, err := service.SniffContentType(file)
		if err != nil {
			return service.UploadResult{}, errors.InvalidArgument("unreadable media")
		}
		contentType, file = detected, rest
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return service.UploadResult{}, errors.Unavailable("failed to read media", err)
	}

	kind := service.KindFromContentType(contentType)
	url := "mem://chat-media/" + string(kind) + "/" + uuid.New().String()

	b.mu.Lock()
	b.blobs[url] = buf.Bytes()
	b.mu.Unlock()

	return service.UploadResult{URL: url, Kind: kind}, nil
}

// Get returns a stored blob by its URL.
func (b *BlobStore) Get(url string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[url]
	return data, ok
}

func (b *BlobStore) Close() error { return nil }
