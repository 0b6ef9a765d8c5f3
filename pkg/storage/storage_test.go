package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	uploadErr  error
	presignErr error
	uploaded   map[string]string
	deleted    []string
	expiry     time.Duration
}

func (f *fakeS3) UploadFile(localPath string, key string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	f.uploaded[key] = localPath
	return "https://bucket.s3.amazonaws.com/" + key, nil
}

func (f *fakeS3) PresignUrl(key string, expiry time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.expiry = expiry
	return "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=abc", nil
}

func (f *fakeS3) DeleteFile(key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.uploaded, key)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func annotatedFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "capture-01hx-annotated.jpg")
	require.NoError(t, os.WriteFile(p, []byte("jpeg"), 0o644))
	return p
}

func TestLocalPublish(t *testing.T) {
	p := annotatedFile(t)

	store := NewLocal("")
	assert.Equal(t, StoreLocal, store.Name())

	ref, err := store.Publish(p)
	require.NoError(t, err)
	assert.Equal(t, "/captures/capture-01hx-annotated.jpg", ref)

	_, err = os.Stat(p)
	assert.NoError(t, err)
}

func TestLocalPublishMissingFile(t *testing.T) {
	_, err := NewLocal(CapturesRoute).Publish(filepath.Join(t.TempDir(), "gone.jpg"))
	assert.Error(t, err)
}

func TestS3Publish(t *testing.T) {
	p := annotatedFile(t)
	client := &fakeS3{uploaded: map[string]string{}}

	store := NewS3(client, "annotated", 5*time.Minute, quietLogger())
	assert.Equal(t, StoreS3, store.Name())

	ref, err := store.Publish(p)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/annotated/capture-01hx-annotated.jpg?X-Amz-Signature=abc", ref)
	assert.Contains(t, client.uploaded, "annotated/capture-01hx-annotated.jpg")
	assert.Equal(t, 5*time.Minute, client.expiry)

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestS3PublishFailures(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		p := annotatedFile(t)
		client := &fakeS3{uploaded: map[string]string{}, uploadErr: errors.New("access denied")}
		store := NewS3(client, "", time.Minute, quietLogger())

		_, err := store.Publish(p)
		assert.Error(t, err)
		assert.Empty(t, client.deleted)

		_, statErr := os.Stat(p)
		assert.NoError(t, statErr)
	})

	t.Run("presign", func(t *testing.T) {
		p := annotatedFile(t)
		store := NewS3(&fakeS3{uploaded: map[string]string{}, presignErr: errors.New("expired credentials")}, "", time.Minute, quietLogger())

		_, err := store.Publish(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "presign")
	})

	t.Run("presign removes uploaded object", func(t *testing.T) {
		p := annotatedFile(t)
		client := &fakeS3{uploaded: map[string]string{}, presignErr: errors.New("head object: 403")}
		store := NewS3(client, "annotated", time.Minute, quietLogger())

		_, err := store.Publish(p)
		require.Error(t, err)
		assert.Equal(t, []string{"annotated/capture-01hx-annotated.jpg"}, client.deleted)
		assert.Empty(t, client.uploaded)
	})
}
