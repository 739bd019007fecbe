package storage

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore persists objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

// NewGCSStore opens a client against the named bucket. Client options pass
// through so tests can point at a fake endpoint.
func NewGCSStore(ctx context.Context, bucketName string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucketName),
	}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %q: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (*Object, error) {
	obj := s.bucket.Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return &Object{
		Body:        r,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Metadata:    attrs.Metadata,
	}, nil
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %q: %w", key, err)
	}
	return true, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("object %q: %w", key, ErrObjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list objects with prefix %q: %w", prefix, err)
		}
		if err := fn(ObjectInfo{Key: attrs.Name, Metadata: attrs.Metadata}); err != nil {
			return err
		}
	}
}
