package remote

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openmined/globsync/internal/blob"
	"github.com/openmined/globsync/internal/reconcile"
	"github.com/openmined/globsync/internal/utils"
)

// S3Store maps a bucket prefix onto reconcile.Store. Keys are prefix + relative path, the
// prefix is used verbatim ("preview/" and "preview-" are both valid).
type S3Store struct {
	client blob.IBlobClient
	prefix string
}

func NewS3Store(client blob.IBlobClient, prefix string) *S3Store {
	return &S3Store{
		client: client,
		prefix: prefix,
	}
}

func (s *S3Store) Key(relPath string) string {
	return s.prefix + relPath
}

func (s *S3Store) List(ctx context.Context) ([]*reconcile.RemoteObject, error) {
	blobs, err := s.client.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects under %q: %w", s.prefix, err)
	}

	objects := make([]*reconcile.RemoteObject, 0, len(blobs))
	for _, b := range blobs {
		if !strings.HasPrefix(b.Key, s.prefix) {
			continue
		}
		objects = append(objects, &reconcile.RemoteObject{
			Key:      b.Key,
			BaseName: strings.TrimPrefix(b.Key, s.prefix),
			Size:     b.Size,
			ETag:     b.ETag,
		})
	}
	return objects, nil
}

func (s *S3Store) Create(ctx context.Context, local *reconcile.LocalFile, meta reconcile.FileMetadata) error {
	return s.put(ctx, s.Key(local.RelPath), local, meta)
}

// Update always writes; change detection happens before it is called.
func (s *S3Store) Update(ctx context.Context, remote *reconcile.RemoteObject, local *reconcile.LocalFile, meta reconcile.FileMetadata) (bool, error) {
	if err := s.put(ctx, remote.Key, local, meta); err != nil {
		return false, err
	}
	return true, nil
}

func (s *S3Store) Delete(ctx context.Context, remote *reconcile.RemoteObject) error {
	if _, err := s.client.DeleteObject(ctx, remote.Key); err != nil {
		return fmt.Errorf("delete %s: %w", remote.Key, err)
	}
	return nil
}

func (s *S3Store) PolicyHeader(ctx context.Context, remote *reconcile.RemoteObject) (string, error) {
	head, err := s.client.HeadObject(ctx, remote.Key)
	if err != nil {
		return "", fmt.Errorf("head %s: %w", remote.Key, err)
	}
	return head.CacheControl, nil
}

func (s *S3Store) put(ctx context.Context, key string, local *reconcile.LocalFile, meta reconcile.FileMetadata) error {
	file, err := os.Open(local.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", local.Path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", local.Path, err)
	}

	resp, err := s.client.PutObject(ctx, &blob.PutObjectParams{
		Key:          key,
		Size:         info.Size(),
		Body:         file,
		ContentType:  utils.DetectContentType(local.Path),
		CacheControl: meta.CachePolicy,
		ACL:          meta.ACL,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	slog.Debug("uploaded", "key", resp.Key, "etag", resp.ETag, "version", resp.Version)
	return nil
}

var _ reconcile.Store = (*S3Store)(nil)
