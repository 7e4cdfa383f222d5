package asset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/config"
)

// newTestStore builds a client for an endpoint nothing listens on. Only
// code paths that fail before any network call are exercised here.
func newTestStore(t *testing.T, publicURL string) *MinIOStore {
	t.Helper()
	s, err := NewMinIOStore(config.AssetConfig{
		Endpoint:  "127.0.0.1:1",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "problem-hub",
		Namespace: "problems",
		PublicURL: publicURL,
		MaxWidth:  1000,
		MaxHeight: 1000,
		MaxPixels: 40_000_000,
		Quality:   80,
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	return s
}

func TestNewMinIOStore_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOStore(config.AssetConfig{Bucket: "b", Namespace: "n"})
	assert.Error(t, err)
}

func TestReference_DefaultsPublicURLToEndpoint(t *testing.T) {
	s := newTestStore(t, "")
	assert.Equal(t, "http://127.0.0.1:1/problem-hub/problems/abc.jpg", s.reference("abc.jpg"))
}

func TestReference_UsesPublicURL(t *testing.T) {
	s := newTestStore(t, "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/problem-hub/problems/abc.jpg", s.reference("abc.jpg"))
}

func TestObjectKey(t *testing.T) {
	s := newTestStore(t, "https://cdn.example.com")

	tests := []struct {
		name      string
		reference string
		want      string
		wantErr   bool
	}{
		{"issued reference", s.reference("cv37rs3pp9olc6atsptg.jpg"), "problems/cv37rs3pp9olc6atsptg.jpg", false},
		{"reference from an older host", "http://old-host:9000/problem-hub/problems/x1.jpg", "problems/x1.jpg", false},
		{"query string ignored", "https://cdn.example.com/problem-hub/problems/x2.jpg?v=1", "problems/x2.jpg", false},
		{"no path", "https://cdn.example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.objectKey(tt.reference)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpload_FailsBeforeNetworkOnBadInput(t *testing.T) {
	s := newTestStore(t, "")

	for _, data := range [][]byte{nil, []byte("not an image")} {
		_, err := s.Upload(context.Background(), data)
		assert.True(t, errors.Is(err, apperror.ErrUploadFailed), "error = %v", err)
	}
}

func TestUpload_OversizedImageIsAValidationError(t *testing.T) {
	s := newTestStore(t, "")

	_, err := s.Upload(context.Background(), pngHeader(20000, 20000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation), "error = %v", err)
	assert.False(t, errors.Is(err, apperror.ErrUploadFailed))
}

func TestReadPolicy_ScopedToNamespace(t *testing.T) {
	s := newTestStore(t, "")
	assert.True(t, strings.Contains(s.readPolicy(), "arn:aws:s3:::problem-hub/problems/*"))
}

func TestUnavailable(t *testing.T) {
	var store Store = Unavailable{}

	_, err := store.Upload(context.Background(), []byte{1})
	assert.True(t, errors.Is(err, apperror.ErrUploadFailed))
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.NoError(t, store.Delete(context.Background(), "https://x/y"))
}
