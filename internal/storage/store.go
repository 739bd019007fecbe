package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by ObjectStore implementations when no object
// exists under the requested key.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored binary together with the attributes persisted alongside it.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// ObjectInfo describes an object during listing without opening its body.
type ObjectInfo struct {
	Key      string
	Metadata map[string]string
}

// ObjectStore is the persistence backend behind the storage service. Objects
// are written exactly once under a fresh key and never updated in place.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (*Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List invokes fn for every object under prefix; a non-nil return stops
	// the walk and is propagated.
	List(ctx context.Context, prefix string, fn func(ObjectInfo) error) error
}
