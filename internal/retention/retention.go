// Package retention deletes stored screenshots whose stamped expiry has
// passed. Expiry is stamped at save time; this sweeper is the collaborator
// that enforces it.
package retention

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harlley/mekane-share/internal/database"
	"github.com/harlley/mekane-share/internal/logger"
	"github.com/harlley/mekane-share/internal/storage"
)

// Sweeper walks stored objects on a schedule and removes expired ones.
type Sweeper struct {
	store storage.ObjectStore
	audit *database.Client
	now   func() time.Time
	cron  *cron.Cron
}

// NewSweeper builds a sweeper over the given store. The audit client may be nil.
func NewSweeper(store storage.ObjectStore, audit *database.Client) *Sweeper {
	return &Sweeper{
		store: store,
		audit: audit,
		now:   time.Now,
	}
}

// Start schedules sweeps with the given cron expression and runs until the
// context is cancelled.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if deleted, err := s.Sweep(ctx); err != nil {
			logger.Error(ctx, "retention sweep failed", err)
		} else if deleted > 0 {
			logger.Info(ctx, "retention sweep complete", logger.Fields{"deleted": deleted})
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Sweep deletes every expired screenshot and returns how many were removed.
// Objects without a parseable expiry are left alone.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC()
	deleted := 0

	err := s.store.List(ctx, "screenshots/", func(info storage.ObjectInfo) error {
		expiresAt, ok := storage.ExpiryFromMetadata(info.Metadata)
		if !ok || expiresAt.After(cutoff) {
			return nil
		}
		if err := s.store.Delete(ctx, info.Key); err != nil {
			logger.Error(ctx, "expired object delete failed", err, logger.Fields{"key": info.Key})
			return nil
		}
		deleted++
		if s.audit != nil {
			if err := s.audit.DeleteUpload(ctx, idFromKey(info.Key)); err != nil {
				logger.Warn(ctx, "audit row delete failed", logger.Fields{"key": info.Key, "error": err.Error()})
			}
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("walking stored objects: %w", err)
	}
	return deleted, nil
}

// idFromKey recovers the screenshot id from its storage key.
func idFromKey(key string) string {
	id := strings.TrimPrefix(key, "screenshots/")
	return strings.TrimSuffix(id, ".png")
}
