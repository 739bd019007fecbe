// Package storage owns the lifecycle of stored screenshots: validation, id
// generation, retention stamping, persistence and retrieval.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harlley/mekane-share/internal/logger"
	"github.com/harlley/mekane-share/internal/types"
)

// objectKeyPrefix namespaces screenshot objects inside the backing store.
const objectKeyPrefix = "screenshots/"

// Service coordinates screenshot persistence on top of an ObjectStore.
// It is the sole writer of stored objects.
type Service struct {
	store   ObjectStore
	baseURL string
	now     func() time.Time
}

// SaveResult reports where a stored screenshot can be fetched and when it expires.
type SaveResult struct {
	URL        string
	ID         string
	UploadedAt time.Time
	ExpiresAt  time.Time
}

// NewService wires a storage service over the given backend. The base URL is
// normalized so share links never carry a trailing slash.
func NewService(store ObjectStore, baseURL string) *Service {
	return &Service{
		store:   store,
		baseURL: types.NormalizeBaseURL(baseURL),
		now:     time.Now,
	}
}

// ObjectKey derives the deterministic storage key for an id.
func ObjectKey(id string) string {
	return objectKeyPrefix + id + ".png"
}

// Validate checks the file constraints before anything is written. The size
// limit is authoritative; the content type is only checked when declared.
func (s *Service) Validate(size int64, contentType string) error {
	if size > types.MaxFileSize {
		return fmt.Errorf("%d bytes: %w", size, types.ErrFileTooLarge)
	}
	if !types.AllowedMIMEType(contentType) {
		return fmt.Errorf("%q: %w", contentType, types.ErrInvalidFormat)
	}
	return nil
}

// GenerateID returns a fresh version-4 UUID. Collisions are not handled;
// regenerating on conflict would only mask a broken random source.
func (s *Service) GenerateID() string {
	return uuid.NewString()
}

// objectMetadata is the blob serialized into object-level metadata. Caller
// metadata is flattened in next to the service-stamped fields.
type objectMetadata struct {
	UploadedAt  string `json:"uploadedAt"`
	ExpiresAt   string `json:"expiresAt"`
	ContentType string `json:"contentType"`

	caller types.UploadMetadata
}

func (m objectMetadata) MarshalJSON() ([]byte, error) {
	merged := map[string]any{
		"uploadedAt":  m.UploadedAt,
		"expiresAt":   m.ExpiresAt,
		"contentType": m.ContentType,
	}
	callerJSON, err := json.Marshal(m.caller)
	if err != nil {
		return nil, err
	}
	var callerMap map[string]any
	if err := json.Unmarshal(callerJSON, &callerMap); err != nil {
		return nil, err
	}
	for k, v := range callerMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Save validates, stamps retention and persists a screenshot. The single put
// is atomic from the caller's perspective; a validation failure leaves no
// side effects.
func (s *Service) Save(ctx context.Context, data []byte, contentType string, meta types.UploadMetadata) (SaveResult, error) {
	if err := s.Validate(int64(len(data)), contentType); err != nil {
		return SaveResult{}, err
	}

	id := s.GenerateID()
	logger.Debug(ctx, "saving screenshot", logger.Fields{"id": id, "size": len(data)})

	retentionDays := meta.Retention
	if retentionDays == 0 {
		retentionDays = types.DefaultRetentionDays
	}
	uploadedAt := s.now().UTC()
	expiresAt := uploadedAt.AddDate(0, 0, retentionDays)

	if contentType == "" {
		contentType = "image/png"
	}
	blob, err := json.Marshal(objectMetadata{
		UploadedAt:  uploadedAt.Format(time.RFC3339),
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		ContentType: contentType,
		caller:      meta,
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("marshal object metadata: %w", err)
	}

	key := ObjectKey(id)
	if err := s.store.Put(ctx, key, data, contentType, map[string]string{"metadata": string(blob)}); err != nil {
		return SaveResult{}, fmt.Errorf("persist screenshot %s: %w", id, err)
	}

	// Best-effort verification that the object landed; failures here are
	// logged but do not fail the save.
	if exists, err := s.store.Exists(ctx, key); err != nil || !exists {
		logger.Warn(ctx, "post-save verification failed", logger.Fields{"id": id, "exists": exists})
	}

	return SaveResult{
		URL:        s.baseURL + "/" + id,
		ID:         id,
		UploadedAt: uploadedAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// Get fetches a stored screenshot by id. Any retrieval failure, including a
// backend error, collapses to nil; callers see only found / not-found.
func (s *Service) Get(ctx context.Context, id string) *Object {
	obj, err := s.store.Get(ctx, ObjectKey(id))
	if err != nil {
		logger.Error(ctx, "screenshot retrieval failed", err, logger.Fields{"id": id})
		return nil
	}
	return obj
}

// Delete removes a stored screenshot, reporting false on any error.
func (s *Service) Delete(ctx context.Context, id string) bool {
	if err := s.store.Delete(ctx, ObjectKey(id)); err != nil {
		logger.Error(ctx, "screenshot delete failed", err, logger.Fields{"id": id})
		return false
	}
	return true
}

// ExpiryFromMetadata extracts the stamped expiry from object-level metadata.
// The second return is false when no parseable expiry is present.
func ExpiryFromMetadata(metadata map[string]string) (time.Time, bool) {
	blob, ok := metadata["metadata"]
	if !ok {
		return time.Time{}, false
	}
	var parsed struct {
		ExpiresAt string `json:"expiresAt"`
	}
	if err := json.Unmarshal([]byte(blob), &parsed); err != nil || parsed.ExpiresAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, parsed.ExpiresAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
