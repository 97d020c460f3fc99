// Package minio stores encrypted file blobs in an S3-compatible bucket.
package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/sealdrop/sealdrop/internal/model"
)

// blobAPI is the subset of the MinIO client the store needs; it exists so
// tests can run without a real object-storage server.
type blobAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

type clientAdapter struct{ c *minio.Client }

func (a clientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.c.BucketExists(ctx, bucketName)
}
func (a clientAdapter) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return a.c.MakeBucket(ctx, bucketName, opts)
}
func (a clientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (a clientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.c.GetObject(ctx, bucketName, objectName, opts)
}
func (a clientAdapter) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return a.c.RemoveObject(ctx, bucketName, objectName, opts)
}
func (a clientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.c.StatObject(ctx, bucketName, objectName, opts)
}

var _ model.Storage = (*BlobStore)(nil)

// BlobStore is a model.Storage backed by a MinIO bucket. Objects are
// opaque ciphertext; content type is always octet-stream.
type BlobStore struct {
	api    blobAPI
	bucket string
}

// NewBlobStore creates a BlobStore over a real *minio.Client.
func NewBlobStore(ctx context.Context, client *minio.Client, bucket string) (*BlobStore, error) {
	return newBlobStore(ctx, clientAdapter{c: client}, bucket)
}

func newBlobStore(ctx context.Context, api blobAPI, bucket string) (*BlobStore, error) {
	s := &BlobStore{
		api:    api,
		bucket: bucket,
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return s, nil
}

func (s *BlobStore) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (s *BlobStore) Upload(ctx context.Context, key string, reader io.Reader) error {
	_, err := s.api.PutObject(ctx, s.bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (s *BlobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}
