package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/openmined/globsync/internal/utils"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

type fakeStore struct {
	mu       sync.Mutex
	objects  []*RemoteObject
	headers  map[string]string
	calls    []string
	failOn   map[string]bool
	noWrite  bool
	listErr  error
	headHits int
}

func newFakeStore(objects ...*RemoteObject) *fakeStore {
	return &fakeStore{
		objects: objects,
		headers: map[string]string{},
		failOn:  map[string]bool{},
	}
}

func (f *fakeStore) List(context.Context) ([]*RemoteObject, error) {
	return f.objects, f.listErr
}

func (f *fakeStore) Create(_ context.Context, local *LocalFile, _ FileMetadata) error {
	return f.call("create:" + local.RelPath)
}

func (f *fakeStore) Update(_ context.Context, remote *RemoteObject, _ *LocalFile, _ FileMetadata) (bool, error) {
	if err := f.call("update:" + remote.Key); err != nil {
		return false, err
	}
	return !f.noWrite, nil
}

func (f *fakeStore) Delete(_ context.Context, remote *RemoteObject) error {
	return f.call("delete:" + remote.Key)
}

func (f *fakeStore) PolicyHeader(_ context.Context, remote *RemoteObject) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headHits++
	if f.failOn["head:"+remote.Key] {
		return "", errInjected
	}
	return f.headers[remote.Key], nil
}

func (f *fakeStore) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.failOn[name] {
		return errInjected
	}
	return nil
}

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// localFile writes content under root and returns the matching LocalFile.
func localFile(t *testing.T, root, rel, content string) *LocalFile {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &LocalFile{Path: path, RelPath: rel, Size: int64(len(content))}
}

// remoteFor returns a remote object with the etag S3 would report for content.
func remoteFor(t *testing.T, prefix, rel, content string) *RemoteObject {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	etag, err := utils.FileETag(path)
	require.NoError(t, err)
	return &RemoteObject{Key: prefix + rel, BaseName: rel, Size: int64(len(content)), ETag: etag}
}
