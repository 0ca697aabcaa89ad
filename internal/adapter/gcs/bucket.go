package gcs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// Long-lived signed read URLs for generated images: the mobile client
// caches them in documents, so they must outlive any session.
var signedURLExpiry = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

// Bucket implements domain.ObjectStore on a Google Cloud Storage bucket.
type Bucket struct {
	client *storage.Client
	name   string
}

// NewBucket creates a bucket-backed object store.
func NewBucket(ctx context.Context, name string) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("storage bucket name is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Bucket{client: client, name: name}, nil
}

// Upload writes the blob and returns a long-lived signed read URL.
func (b *Bucket) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	obj := b.client.Bucket(b.name).Object(path)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", path, err)
	}

	signedURL, err := b.client.Bucket(b.name).SignedURL(path, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: signedURLExpiry,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %s: %w", path, err)
	}
	return signedURL, nil
}

// Close releases the underlying storage client.
func (b *Bucket) Close() error {
	return b.client.Close()
}
