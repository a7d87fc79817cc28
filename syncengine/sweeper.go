package syncengine

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmfieldworks/drillreports_backend/models"
)

const defaultGraceHours = 24

// GraceWindow is how long a confirmed record stays visible locally before
// the retention sweeper purges it.
func GraceWindow() time.Duration {
	if v := strings.TrimSpace(os.Getenv("RETENTION_GRACE_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Hour
		}
	}
	return defaultGraceHours * time.Hour
}

// PurgeConfirmed deletes synced records older than the grace window. It
// runs before pending-work views and opportunistically after each sweep,
// and is the only path allowed to delete synced records without explicit
// operator action. Pending, failed, skipped and conflict records are
// never touched.
func PurgeConfirmed(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-GraceWindow())
	return models.PurgeConfirmedBefore(ctx, cutoff)
}
