package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobAPI implements blobAPI for testing without network.
type fakeBlobAPI struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error

	putErr error

	getRC  io.ReadCloser
	getErr error

	removeErr error

	statErr error
}

func (f *fakeBlobAPI) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}
func (f *fakeBlobAPI) MakeBucket(_ context.Context, _ string, _ minioLib.MakeBucketOptions) error {
	return f.makeBucketErr
}
func (f *fakeBlobAPI) PutObject(_ context.Context, _ string, _ string, _ io.Reader, _ int64, _ minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	return minioLib.UploadInfo{}, f.putErr
}
func (f *fakeBlobAPI) GetObject(_ context.Context, _ string, _ string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	return f.getRC, f.getErr
}
func (f *fakeBlobAPI) RemoveObject(_ context.Context, _ string, _ string, _ minioLib.RemoveObjectOptions) error {
	return f.removeErr
}
func (f *fakeBlobAPI) StatObject(_ context.Context, _ string, _ string, _ minioLib.StatObjectOptions) (minioLib.ObjectInfo, error) {
	return minioLib.ObjectInfo{}, f.statErr
}

func TestNewBlobStore_BucketHandling(t *testing.T) {
	ctx := context.Background()

	t.Run("bucket exists", func(t *testing.T) {
		s, err := newBlobStore(ctx, &fakeBlobAPI{bucketExists: true}, "b")
		require.NoError(t, err)
		assert.Equal(t, "b", s.bucket)
	})

	t.Run("bucket created", func(t *testing.T) {
		s, err := newBlobStore(ctx, &fakeBlobAPI{bucketExists: false}, "b")
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("bucket check error", func(t *testing.T) {
		s, err := newBlobStore(ctx, &fakeBlobAPI{bucketExistsErr: errors.New("boom")}, "b")
		assert.Nil(t, s)
		assert.ErrorContains(t, err, "failed to ensure bucket exists")
	})

	t.Run("bucket create error", func(t *testing.T) {
		s, err := newBlobStore(ctx, &fakeBlobAPI{makeBucketErr: errors.New("fail")}, "b")
		assert.Nil(t, s)
		assert.ErrorContains(t, err, "failed to ensure bucket exists")
	})
}

func TestBlobStore_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		s := &BlobStore{api: &fakeBlobAPI{}, bucket: "b"}
		assert.NoError(t, s.Upload(ctx, "k", bytes.NewReader([]byte("data"))))
	})

	t.Run("error", func(t *testing.T) {
		s := &BlobStore{api: &fakeBlobAPI{putErr: errors.New("put-fail")}, bucket: "b"}
		err := s.Upload(ctx, "k", bytes.NewReader([]byte("data")))
		assert.ErrorContains(t, err, "failed to upload object")
	})
}

func TestBlobStore_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		s := &BlobStore{api: &fakeBlobAPI{getRC: io.NopCloser(bytes.NewReader([]byte("abc")))}, bucket: "b"}
		rc, err := s.Download(ctx, "k")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), data)
	})

	t.Run("error", func(t *testing.T) {
		s := &BlobStore{api: &fakeBlobAPI{getErr: errors.New("get-fail")}, bucket: "b"}
		_, err := s.Download(ctx, "k")
		assert.ErrorContains(t, err, "failed to get object")
	})
}

func TestBlobStore_Delete(t *testing.T) {
	ctx := context.Background()

	s := &BlobStore{api: &fakeBlobAPI{}, bucket: "b"}
	assert.NoError(t, s.Delete(ctx, "k"))

	s = &BlobStore{api: &fakeBlobAPI{removeErr: errors.New("rm-fail")}, bucket: "b"}
	assert.ErrorContains(t, s.Delete(ctx, "k"), "failed to delete object")
}

func TestBlobStore_Exists(t *testing.T) {
	ctx := context.Background()

	s := &BlobStore{api: &fakeBlobAPI{}, bucket: "b"}
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	s = &BlobStore{api: &fakeBlobAPI{statErr: errors.New("stat-fail")}, bucket: "b"}
	_, err = s.Exists(ctx, "k")
	assert.ErrorContains(t, err, "failed to stat object")
}
