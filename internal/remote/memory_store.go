package remote

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/openmined/globsync/internal/reconcile"
	"github.com/openmined/globsync/internal/utils"
)

// MemoryObject is the state MemoryStore keeps per key
type MemoryObject struct {
	Key  string
	Size int64
	ETag string
	Meta reconcile.FileMetadata
}

// MemoryStore is an in-memory reconcile.Store. It backs --dummy runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string]*MemoryObject
}

func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		prefix:  prefix,
		objects: make(map[string]*MemoryObject),
	}
}

// Seed stores an object under prefix + relPath with the fingerprint of content.
func (m *MemoryStore) Seed(relPath string, content []byte, meta reconcile.FileMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.prefix + relPath
	m.objects[key] = &MemoryObject{
		Key:  key,
		Size: int64(len(content)),
		ETag: utils.QuoteETag(utils.BytesHash(content)),
		Meta: meta,
	}
}

// Get returns a copy of the object stored under key
func (m *MemoryStore) Get(key string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return MemoryObject{}, false
	}
	return *obj, true
}

// Keys returns all stored keys in sorted order
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryStore) List(ctx context.Context) ([]*reconcile.RemoteObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make([]*reconcile.RemoteObject, 0, len(m.objects))
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, m.prefix) {
			continue
		}
		objects = append(objects, &reconcile.RemoteObject{
			Key:      key,
			BaseName: strings.TrimPrefix(key, m.prefix),
			Size:     obj.Size,
			ETag:     obj.ETag,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MemoryStore) Create(ctx context.Context, local *reconcile.LocalFile, meta reconcile.FileMetadata) error {
	return m.put(ctx, m.prefix+local.RelPath, local, meta)
}

func (m *MemoryStore) Update(ctx context.Context, remote *reconcile.RemoteObject, local *reconcile.LocalFile, meta reconcile.FileMetadata) (bool, error) {
	if err := m.put(ctx, remote.Key, local, meta); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, remote *reconcile.RemoteObject) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, remote.Key)
	return nil
}

func (m *MemoryStore) PolicyHeader(ctx context.Context, remote *reconcile.RemoteObject) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[remote.Key]
	if !ok {
		return "", fmt.Errorf("head %s: %w", remote.Key, os.ErrNotExist)
	}
	return obj.Meta.CachePolicy, nil
}

func (m *MemoryStore) put(ctx context.Context, key string, local *reconcile.LocalFile, meta reconcile.FileMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(local.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", local.Path, err)
	}
	etag, err := utils.FileETag(local.Path)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", local.Path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &MemoryObject{
		Key:  key,
		Size: info.Size(),
		ETag: etag,
		Meta: meta,
	}
	return nil
}

var _ reconcile.Store = (*MemoryStore)(nil)
