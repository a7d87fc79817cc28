package syncengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmfieldworks/drillreports_backend/config"
	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/mmfieldworks/drillreports_backend/utils"
	"github.com/sirupsen/logrus"
)

// Engine drains pending and failed records to the remote authority. At
// most one sweep is in flight at a time; the in-flight flag is explicit
// engine state, queryable via InProgress, and a second trigger is refused
// rather than interleaved.
type Engine struct {
	submitter Submitter
	logger    *logrus.Logger

	mu          sync.Mutex
	inFlight    bool
	lastSweepAt *time.Time
}

func NewEngine(submitter Submitter, logger *logrus.Logger) *Engine {
	return &Engine{
		submitter: submitter,
		logger:    logger,
	}
}

// InProgress reports whether a sweep is currently running. Callers must
// check this (or handle ErrorSyncInProgress) before triggering a sweep.
func (e *Engine) InProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return utils.ErrorSyncInProgress
	}
	e.inFlight = true
	return nil
}

func (e *Engine) end() {
	now := time.Now().UTC()
	e.mu.Lock()
	e.inFlight = false
	e.lastSweepAt = &now
	e.mu.Unlock()
}

// RunSweep submits sync candidates strictly one at a time, oldest first,
// persisting each record's status transition before moving on. One
// record's failure never aborts the sweep, and every attempted record
// reaches a terminal status - nothing is left syncing when the sweep ends.
func (e *Engine) RunSweep(ctx context.Context, trigger string) (*SweepResult, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	result := &SweepResult{Trigger: trigger}

	// Records stranded in syncing by a crash or a storage error on the
	// result transition are requeued as failed so this sweep retries them.
	recovered, err := models.ResetInterruptedSyncing(ctx)
	if err != nil {
		return result, err
	}
	if recovered > 0 {
		e.logger.WithFields(logrus.Fields{
			"module":    "syncengine",
			"recovered": recovered,
		}).Warn("requeued records stranded mid-submission by an earlier interruption")
	}

	candidates, err := models.SyncCandidates(ctx)
	if err != nil {
		return result, err
	}

	for i := range candidates {
		record := &candidates[i]

		// A record that already carries a server id is not new work; it is
		// re-submitted only on an explicit post-conflict override.
		if record.ServerId != "" && !record.ForceResubmit {
			result.Skipped++
			if merr := models.RestoreSynced(ctx, record.LocalId); merr != nil {
				config.LogError(e.logger, "syncengine", "RunSweep", "restore synced status", record.LocalId, merr)
			}
			continue
		}

		if err := models.MarkSyncing(ctx, record.LocalId); err != nil {
			// Storage trouble on the transition is recorded and the sweep
			// moves on; the record stays pending/failed and retryable.
			config.LogError(e.logger, "syncengine", "RunSweep", "mark syncing", record.LocalId, err)
			result.Failed++
			continue
		}
		result.Attempted++

		resp, err := e.submit(ctx, record)
		switch {
		case err != nil:
			result.Failed++
			if merr := models.MarkFailed(ctx, record.LocalId, err.Error()); merr != nil {
				config.LogError(e.logger, "syncengine", "RunSweep", "mark failed", record.LocalId, merr)
			}
			e.logger.WithFields(logrus.Fields{
				"module":   "syncengine",
				"local_id": record.LocalId,
				"site":     record.SiteLocation,
				"attempts": record.SyncAttempts + 1,
			}).Warn("report submission failed: " + err.Error())

		case resp.Status == RemoteStatusSuccess:
			serverId := resp.ServerId
			if record.ServerId != "" {
				serverId = "" // assigned exactly once, never rewritten
			}
			if merr := models.MarkSynced(ctx, record.LocalId, serverId); merr != nil {
				config.LogError(e.logger, "syncengine", "RunSweep", "mark synced", record.LocalId, merr)
				result.Failed++
				continue
			}
			result.Synced++

		case resp.Status == RemoteStatusConflict:
			result.Conflicts++
			if merr := models.MarkConflict(ctx, record.LocalId, resp.ServerData); merr != nil {
				config.LogError(e.logger, "syncengine", "RunSweep", "mark conflict", record.LocalId, merr)
			}
			e.logger.WithFields(logrus.Fields{
				"module":   "syncengine",
				"local_id": record.LocalId,
				"site":     record.SiteLocation,
			}).Info("remote reported a conflicting record; awaiting operator resolution")

		default: // RemoteStatusFailure
			result.Failed++
			msg := resp.Message
			if msg == "" {
				msg = "remote authority rejected the report"
			}
			if merr := models.MarkFailed(ctx, record.LocalId, msg); merr != nil {
				config.LogError(e.logger, "syncengine", "RunSweep", "mark failed", record.LocalId, merr)
			}
		}
	}

	// Opportunistic retention pass; a purge hiccup never fails the sweep.
	purged, err := PurgeConfirmed(ctx)
	if err != nil {
		config.LogError(e.logger, "syncengine", "RunSweep", "retention purge", nil, err)
	}
	result.Purged = purged

	e.logger.WithFields(logrus.Fields{
		"module":    "syncengine",
		"trigger":   trigger,
		"attempted": result.Attempted,
		"synced":    result.Synced,
		"failed":    result.Failed,
		"conflicts": result.Conflicts,
		"purged":    result.Purged,
	}).Info("sync sweep finished")

	return result, nil
}

// submit guards the transport call so an unexpected panic still yields a
// terminal failed status instead of a record stuck in syncing.
func (e *Engine) submit(ctx context.Context, record *models.ReportRecord) (resp *SubmitResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("submission panicked: %v", r)
		}
	}()
	return e.submitter.SubmitReport(ctx, record)
}

// Status assembles the read-only projection the UI polls: pending count,
// last confirmation time, in-flight flag and per-record error text.
func (e *Engine) Status(ctx context.Context) (*StatusResponse, error) {
	pending, err := models.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	lastSynced, err := models.LastSyncedAt(ctx)
	if err != nil {
		return nil, err
	}

	failed, err := models.ListReports(ctx, models.SyncStatusFailed, models.SyncStatusConflict, models.SyncStatusSkipped)
	if err != nil {
		return nil, err
	}
	errs := make([]RecordError, 0, len(failed))
	for i := range failed {
		r := &failed[i]
		errs = append(errs, RecordError{
			LocalId:      r.LocalId,
			SiteLocation: r.SiteLocation,
			ReportDate:   r.ReportDate,
			Status:       r.Status,
			SyncAttempts: r.SyncAttempts,
			LastError:    r.LastError,
			LastAttempt:  r.LastAttemptAt,
		})
	}

	e.mu.Lock()
	inFlight := e.inFlight
	lastSweep := e.lastSweepAt
	e.mu.Unlock()

	return &StatusResponse{
		PendingCount: pending,
		InProgress:   inFlight,
		LastSyncedAt: lastSynced,
		LastSweepAt:  lastSweep,
		Errors:       errs,
	}, nil
}
