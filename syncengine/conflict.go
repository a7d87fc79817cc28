package syncengine

import (
	"context"
	"fmt"

	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/mmfieldworks/drillreports_backend/utils"
)

// Resolve applies an operator decision to a record the remote authority
// flagged as conflicting. Only records currently in conflict status are
// eligible.
//
//   - use_local: force re-submission of the local version on the next
//     sweep, overriding server caution.
//   - use_server: the server copy wins; the local record is deleted.
//   - merge: keeps the local version and forces re-submission. True
//     field-level reconciliation is an unresolved requirement upstream;
//     keeping local is the branch that cannot silently drop data.
//   - skip: parks the record; excluded from automatic sweeps until the
//     operator revisits it.
func Resolve(ctx context.Context, localId string, action models.ConflictAction) error {
	if !action.Valid() {
		return fmt.Errorf("unknown conflict action %q", action)
	}

	record, err := models.GetReport(ctx, localId)
	if err != nil {
		return err
	}
	if record.Status != models.SyncStatusConflict {
		return utils.ErrorNotInConflict
	}

	switch action {
	case models.ConflictActionUseLocal, models.ConflictActionMerge:
		return models.MarkStatus(ctx, localId, models.SyncStatusPending, true)
	case models.ConflictActionUseServer:
		return models.DeleteReport(ctx, localId)
	case models.ConflictActionSkip:
		return models.MarkStatus(ctx, localId, models.SyncStatusSkipped, false)
	}
	return nil
}
