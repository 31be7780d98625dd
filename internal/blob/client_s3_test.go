package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	pages     []*s3.ListObjectsV2Output
	listCalls []*s3.ListObjectsV2Input
	puts      []*s3.PutObjectInput
	putBodies []string
	deletes   []string
	head      *s3.HeadObjectOutput
	err       error
}

func (m *mockS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.listCalls = append(m.listCalls, in)
	page := m.pages[len(m.listCalls)-1]
	return page, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, _ := io.ReadAll(in.Body)
	m.puts = append(m.puts, in)
	m.putBodies = append(m.putBodies, string(body))
	return &s3.PutObjectOutput{ETag: aws.String(`"etag"`)}, nil
}

func (m *mockS3) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.head, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.deletes = append(m.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestBlobClient_ListObjectsPaginates(t *testing.T) {
	mock := &mockS3{
		pages: []*s3.ListObjectsV2Output{
			{
				Contents: []types.Object{
					{Key: aws.String("site/a.txt"), ETag: aws.String(`"aaa"`), Size: aws.Int64(4)},
				},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("next"),
			},
			{
				Contents: []types.Object{
					{Key: aws.String("site/b.txt"), ETag: aws.String(`"bbb"`), Size: aws.Int64(7), LastModified: aws.Time(time.Unix(0, 0))},
				},
				IsTruncated: aws.Bool(false),
			},
		},
	}
	client := NewBlobClient(mock, &S3BlobConfig{BucketName: "bucket"})

	objects, err := client.ListObjects(context.Background(), "site/")
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.Equal(t, "site/a.txt", objects[0].Key)
	assert.Equal(t, `"aaa"`, objects[0].ETag, "etag quotes are preserved")
	assert.EqualValues(t, 7, objects[1].Size)

	require.Len(t, mock.listCalls, 2)
	assert.Equal(t, "site/", aws.ToString(mock.listCalls[0].Prefix))
	assert.Equal(t, "bucket", aws.ToString(mock.listCalls[0].Bucket))
	assert.Equal(t, "next", aws.ToString(mock.listCalls[1].ContinuationToken))
}

func TestBlobClient_ListObjectsError(t *testing.T) {
	boom := errors.New("access denied")
	client := NewBlobClient(&mockS3{err: boom}, &S3BlobConfig{BucketName: "bucket"})

	_, err := client.ListObjects(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}

func TestBlobClient_PutObjectSetsHeaders(t *testing.T) {
	mock := &mockS3{}
	client := NewBlobClient(mock, &S3BlobConfig{BucketName: "bucket"})

	resp, err := client.PutObject(context.Background(), &PutObjectParams{
		Key:          "site/index.html",
		Size:         7,
		Body:         strings.NewReader("<html/>"),
		ContentType:  "text/html",
		CacheControl: "no-store",
		ACL:          "public-read",
	})
	require.NoError(t, err)
	assert.Equal(t, `"etag"`, resp.ETag)
	assert.Equal(t, "site/index.html", resp.Key)
	assert.Empty(t, resp.Version)

	require.Len(t, mock.puts, 1)
	put := mock.puts[0]
	assert.Equal(t, "site/index.html", aws.ToString(put.Key))
	assert.Equal(t, "no-store", aws.ToString(put.CacheControl))
	assert.Equal(t, "text/html", aws.ToString(put.ContentType))
	assert.Equal(t, types.ObjectCannedACLPublicRead, put.ACL)
	assert.EqualValues(t, 7, aws.ToInt64(put.ContentLength))
	assert.Equal(t, "<html/>", mock.putBodies[0])
}

func TestBlobClient_PutObjectOmitsEmptyHeaders(t *testing.T) {
	mock := &mockS3{}
	client := NewBlobClient(mock, &S3BlobConfig{BucketName: "bucket"})

	_, err := client.PutObject(context.Background(), &PutObjectParams{Key: "k", Body: strings.NewReader("")})
	require.NoError(t, err)

	put := mock.puts[0]
	assert.Nil(t, put.CacheControl)
	assert.Nil(t, put.ContentType)
	assert.Empty(t, put.ACL)
}

func TestBlobClient_HeadAndDelete(t *testing.T) {
	mock := &mockS3{head: &s3.HeadObjectOutput{
		CacheControl:  aws.String("max-age=60"),
		ContentLength: aws.Int64(12),
		ETag:          aws.String(`"abc"`),
	}}
	client := NewBlobClient(mock, &S3BlobConfig{BucketName: "bucket"})

	head, err := client.HeadObject(context.Background(), "site/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "max-age=60", head.CacheControl)
	assert.Equal(t, "site/a.txt", head.Key)

	ok, err := client.DeleteObject(context.Background(), "site/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"site/a.txt"}, mock.deletes)
}

func TestS3BlobConfig(t *testing.T) {
	assert.ErrorIs(t, (&S3BlobConfig{}).Validate(), ErrNoBucket)

	minio := WithMinioConfig("http://localhost:9000", "bucket", "key", "secret")
	assert.True(t, minio.UsePathStyle)
	assert.False(t, minio.UseAccelerate)
	assert.NoError(t, minio.Validate())

	accelerated := WithS3Config("bucket", "eu-west-1", "", "", true)
	assert.True(t, accelerated.UseAccelerate)
	assert.False(t, accelerated.UsePathStyle)
	assert.Empty(t, accelerated.Endpoint)

	_, err := NewBlobClientWithS3Config(context.Background(), &S3BlobConfig{})
	assert.ErrorIs(t, err, ErrNoBucket)
}
