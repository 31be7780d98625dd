package reconcile

import (
	"context"
	"fmt"
)

// LocalFile is a regular file found under the sync root.
type LocalFile struct {
	// Path is the absolute path on disk
	Path string
	// RelPath is the slash-separated path relative to the sync root
	RelPath string
	Size    int64
}

// RemoteObject is an object returned by the remote listing.
type RemoteObject struct {
	// Key is the full object key including the remote prefix
	Key string
	// BaseName is Key with the remote prefix stripped. It is the join key against LocalFile.RelPath.
	BaseName string
	Size     int64
	// ETag is the fingerprint exactly as reported by the store, quotes included
	ETag string
}

func (r *RemoteObject) String() string {
	return fmt.Sprintf("RemoteObject[key=%s etag=%s]", r.Key, r.ETag)
}

// FileMetadata is the policy applied to an uploaded object.
type FileMetadata struct {
	CachePolicy string
	ACL         string
}

// PolicyResolver resolves the metadata for a root-relative path.
type PolicyResolver interface {
	Resolve(relPath string) FileMetadata
}

// Store is the remote side of a sync. Implementations must be safe for concurrent use
// when the executor runs with Concurrency > 1.
type Store interface {
	// List returns every object under the configured prefix.
	List(ctx context.Context) ([]*RemoteObject, error)
	// Create uploads local to prefix + local.RelPath.
	Create(ctx context.Context, local *LocalFile, meta FileMetadata) error
	// Update re-uploads local over remote and reports whether a write happened.
	Update(ctx context.Context, remote *RemoteObject, local *LocalFile, meta FileMetadata) (bool, error)
	// Delete removes remote by its full key.
	Delete(ctx context.Context, remote *RemoteObject) error
	// PolicyHeader returns the current cache policy header of remote.
	PolicyHeader(ctx context.Context, remote *RemoteObject) (string, error)
}
