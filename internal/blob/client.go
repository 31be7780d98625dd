package blob

import (
	"context"
	"io"
)

type IBlobClient interface {
	ListObjects(ctx context.Context, prefix string) ([]*BlobInfo, error)
	PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error)
	HeadObject(ctx context.Context, key string) (*HeadObjectResponse, error)
	DeleteObject(ctx context.Context, key string) (bool, error)
}

// ===================================================================================================

type PutObjectParams struct {
	Key          string
	Size         int64
	Body         io.Reader
	ContentType  string
	CacheControl string
	// ACL is a canned ACL such as "public-read". Empty leaves the bucket default.
	ACL string
}

type PutObjectResponse struct {
	Key string
	// Version is empty unless the bucket has versioning enabled
	Version string
	ETag    string
}

// ===================================================================================================

type HeadObjectResponse struct {
	Key          string
	CacheControl string
}

// ===================================================================================================

// BlobInfo is one entry of a listing. ETag is kept exactly as S3 reports it, quotes included.
type BlobInfo struct {
	Key          string `json:"key"`
	ETag         string `json:"etag"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}
