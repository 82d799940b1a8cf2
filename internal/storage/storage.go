package storage

import (
	"context"
	"io"
	"time"
)

type Uploader interface {
	// Upload stores the object and returns its storage path (object key).
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
