package retention

import (
	"context"
	"testing"
	"time"

	"github.com/harlley/mekane-share/internal/storage"
	"github.com/harlley/mekane-share/internal/types"
)

func TestSweepDeletesOnlyExpired(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := storage.NewService(store, "http://localhost:8080")
	ctx := context.Background()

	expired, err := svc.Save(ctx, []byte("old"), "image/png", types.UploadMetadata{Retention: 1})
	if err != nil {
		t.Fatal(err)
	}
	live, err := svc.Save(ctx, []byte("new"), "image/png", types.UploadMetadata{Retention: 30})
	if err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(store, nil)
	sweeper.now = func() time.Time { return time.Now().AddDate(0, 0, 2) }

	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if svc.Get(ctx, expired.ID) != nil {
		t.Error("expired screenshot still present")
	}
	if svc.Get(ctx, live.ID) == nil {
		t.Error("live screenshot removed")
	}
}

func TestSweepLeavesUnparseableMetadataAlone(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "screenshots/odd.png", []byte("x"), "image/png", map[string]string{"metadata": "{broken"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "screenshots/bare.png", []byte("x"), "image/png", nil); err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(store, nil)
	sweeper.now = func() time.Time { return time.Now().AddDate(1, 0, 0) }

	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestSweepIgnoresOtherPrefixes(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	meta := map[string]string{"metadata": `{"expiresAt":"` + past + `"}`}
	if err := store.Put(ctx, "other/file.png", []byte("x"), "image/png", meta); err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(store, nil)
	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
	if ok, _ := store.Exists(ctx, "other/file.png"); !ok {
		t.Error("object outside the screenshot prefix was removed")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := NewSweeper(store, nil)
	if err := sweeper.Start(ctx, "not a schedule"); err == nil {
		t.Error("invalid cron expression must be rejected")
	}
	if err := sweeper.Start(ctx, "@hourly"); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
}
