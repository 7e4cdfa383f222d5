// Package asset stores problem images in remote object storage.
//
// A Store hands out references: public URLs whose last path segment is the
// object id. The same reference is later passed back to Delete.
package asset

import (
	"context"
	"errors"

	"github.com/sakif/problem-hub/internal/apperror"
)

// Store is the contract the problem service relies on.
//
// Upload blocks until the object is durably stored and returns its
// reference; every failure is an apperror.ErrUploadFailed. Delete removes a
// previously issued reference. Callers treat Delete as best-effort.
type Store interface {
	Upload(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, reference string) error
}

// ErrNotConfigured is the cause reported by Unavailable.Upload.
var ErrNotConfigured = errors.New("asset storage is not configured")

// Unavailable is used when no object storage endpoint is configured.
// Problems without images still work; uploads fail and deletes do nothing.
type Unavailable struct{}

var _ Store = Unavailable{}

func (Unavailable) Upload(context.Context, []byte) (string, error) {
	return "", apperror.UploadFailed(ErrNotConfigured)
}

func (Unavailable) Delete(context.Context, string) error {
	return nil
}
