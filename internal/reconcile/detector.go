package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openmined/globsync/internal/utils"
)

// Reasons reported by the Detector.
const (
	ReasonSize        = "size"
	ReasonContent     = "content"
	ReasonCachePolicy = "cache-policy"
)

// PolicyHeaderSource fetches the current cache policy of a remote object.
type PolicyHeaderSource interface {
	PolicyHeader(ctx context.Context, remote *RemoteObject) (string, error)
}

// Detector decides whether an update candidate needs to be re-uploaded.
type Detector struct {
	headers            PolicyHeaderSource
	compareCachePolicy bool
	fingerprint        func(path string) (string, error)
}

// NewDetector creates a detector. headers is only used when compareCachePolicy is set.
func NewDetector(headers PolicyHeaderSource, compareCachePolicy bool) *Detector {
	return &Detector{
		headers:            headers,
		compareCachePolicy: compareCachePolicy,
		fingerprint:        utils.FileETag,
	}
}

// HasChanged compares local against remote, cheapest check first: size, then content
// fingerprint, then (optionally) the remote cache policy header, which costs a round trip.
// The returned reason is empty when the file is unchanged.
func (d *Detector) HasChanged(ctx context.Context, remote *RemoteObject, local *LocalFile, meta FileMetadata) (bool, string, error) {
	if local.Size != remote.Size {
		slog.Debug("file size changed", "key", remote.Key, "old", remote.Size, "new", local.Size)
		return true, ReasonSize, nil
	}

	etag, err := d.fingerprint(local.Path)
	if err != nil {
		return false, "", fmt.Errorf("fingerprint %s: %w", local.Path, err)
	}
	if etag != remote.ETag {
		// multipart and SSE-KMS etags are not a plain md5, those objects always read as changed
		if strings.Contains(remote.ETag, "-") {
			slog.Debug("remote etag is not a content md5", "key", remote.Key, "etag", remote.ETag)
		}
		slog.Debug("file content changed", "key", remote.Key, "old", remote.ETag, "new", etag)
		return true, ReasonContent, nil
	}

	if d.compareCachePolicy && d.headers != nil {
		slog.Debug("check cache policy", "key", remote.Key)
		current, err := d.headers.PolicyHeader(ctx, remote)
		if err != nil {
			return false, "", fmt.Errorf("policy header %s: %w", remote.Key, err)
		}
		if current != meta.CachePolicy {
			slog.Debug("cache policy changed", "key", remote.Key, "old", current, "new", meta.CachePolicy)
			return true, ReasonCachePolicy, nil
		}
	}

	return false, "", nil
}
