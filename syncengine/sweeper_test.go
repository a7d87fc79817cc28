package syncengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmfieldworks/drillreports_backend/config"
	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/mmfieldworks/drillreports_backend/utils"
)

func TestGraceWindow(t *testing.T) {
	t.Setenv("RETENTION_GRACE_HOURS", "")
	if got := GraceWindow(); got != 24*time.Hour {
		t.Fatalf("default grace window must be 24h, got %s", got)
	}

	t.Setenv("RETENTION_GRACE_HOURS", "72")
	if got := GraceWindow(); got != 72*time.Hour {
		t.Fatalf("expected 72h, got %s", got)
	}

	// Nonsense values fall back to the default rather than disabling retention.
	t.Setenv("RETENTION_GRACE_HOURS", "soon")
	if got := GraceWindow(); got != 24*time.Hour {
		t.Fatalf("malformed value must fall back to 24h, got %s", got)
	}
	t.Setenv("RETENTION_GRACE_HOURS", "-1")
	if got := GraceWindow(); got != 24*time.Hour {
		t.Fatalf("negative value must fall back to 24h, got %s", got)
	}
}

func TestPurgeConfirmed(t *testing.T) {
	t.Setenv("RETENTION_GRACE_HOURS", "24")
	if err := config.ConnectTestDatabase(models.MigrateLocalStore); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	ctx := context.Background()

	confirmedAt := func(age time.Duration) *time.Time {
		ts := time.Now().UTC().Add(-age)
		return &ts
	}

	stale := seedReport(t, ctx, "Stale Site")
	stale.Status = models.SyncStatusSynced
	stale.SyncedAt = confirmedAt(25 * time.Hour)
	if err := models.SaveReport(ctx, stale); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	inGrace := seedReport(t, ctx, "Grace Site")
	inGrace.Status = models.SyncStatusSynced
	inGrace.SyncedAt = confirmedAt(23 * time.Hour)
	if err := models.SaveReport(ctx, inGrace); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	unsynced := seedReport(t, ctx, "Unsynced Site")

	purged, err := PurgeConfirmed(ctx)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected exactly 1 purged, got %d", purged)
	}
	if _, err := models.GetReport(ctx, stale.LocalId); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("stale confirmed record must be gone, got %v", err)
	}
	if _, err := models.GetReport(ctx, inGrace.LocalId); err != nil {
		t.Fatalf("record inside the grace window must survive: %v", err)
	}
	if _, err := models.GetReport(ctx, unsynced.LocalId); err != nil {
		t.Fatalf("unconfirmed record must survive: %v", err)
	}
}
