package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmfieldworks/drillreports_backend/config"
	"github.com/mmfieldworks/drillreports_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRecord is one field visit's complete data plus sync bookkeeping.
// LocalId is assigned at creation and never changes; ServerId is assigned
// exactly once, on first successful sync.
type ReportRecord struct {
	LocalId  string `gorm:"primaryKey;size:36" json:"local_id"`
	ServerId string `gorm:"size:64;index" json:"server_id"`

	ReportDate   time.Time `gorm:"index;not null" json:"report_date"`
	ClientName   string    `gorm:"size:255;not null" json:"client_name"`
	SiteLocation string    `gorm:"size:255;not null" json:"site_location"`
	RigName      string    `gorm:"size:100" json:"rig_name"`

	StartTime     string `gorm:"size:5" json:"start_time"` // "HH:MM"
	EndTime       string `gorm:"size:5" json:"end_time"`
	StartRotation int    `json:"start_rotation"`
	EndRotation   int    `json:"end_rotation"`

	DrillRodCount   int             `json:"drill_rod_count"`
	RodLengthM      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"rod_length_m"`
	CasingPipeCount int             `json:"casing_pipe_count"`
	CasingLengthM   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"casing_length_m"`

	JobType            JobType           `gorm:"size:20" json:"job_type"`
	MaterialsBy        MaterialsProvider `gorm:"size:20" json:"materials_by"`
	MaterialsStoreName string            `gorm:"size:255" json:"materials_store_name"`

	BalanceBroughtForward   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"balance_brought_forward"`
	ContractSum             decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"contract_sum"`
	RigFeeCharged           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"rig_fee_charged"`
	RigFeeCollected         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"rig_fee_collected"`
	CashReceivedFromCompany decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cash_received_from_company"`
	MaterialsSoldIncome     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"materials_sold_income"`
	MaterialsCost           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"materials_cost"`
	LoansTaken              decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"loans_taken"`
	MobileMoneyTransfer     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"mobile_money_transfer"`
	CashGiven               decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cash_given"`
	BankDeposit             decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"bank_deposit"`

	Remarks string `gorm:"type:text" json:"remarks"`

	Workers  []WorkerPayEntry `gorm:"foreignKey:ReportLocalId;references:LocalId" json:"workers"`
	Expenses []ExpenseEntry   `gorm:"foreignKey:ReportLocalId;references:LocalId" json:"expenses"`

	Status        SyncStatus `gorm:"size:20;index;not null" json:"status"`
	SyncAttempts  int        `gorm:"default:0" json:"sync_attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	LastError     string     `gorm:"type:text" json:"last_error"`
	SyncedAt      *time.Time `gorm:"index" json:"synced_at"`
	ServerData    []byte     `gorm:"type:json" json:"server_data,omitempty"`
	ForceResubmit bool       `gorm:"default:false" json:"force_resubmit"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WorkerPayEntry is one worker's pay line on a report. Amount is computed
// by the derivation engine and clamped at zero.
type WorkerPayEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ReportLocalId string          `gorm:"size:36;index;not null" json:"report_local_id"`
	Position      int             `gorm:"not null" json:"position"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Role          string          `gorm:"size:100" json:"role"`
	WageType      WageType        `gorm:"size:20" json:"wage_type"`
	Units         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"units"`
	Rate          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"rate"`
	Benefits      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"benefits"`
	LoanReclaim   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"loan_reclaim"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"amount"`
	Paid          bool            `gorm:"default:false" json:"paid"`
}

// ExpenseEntry is one miscellaneous daily expense line.
type ExpenseEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ReportLocalId string          `gorm:"size:36;index;not null" json:"report_local_id"`
	Position      int             `gorm:"not null" json:"position"`
	Description   string          `gorm:"size:255;not null" json:"description"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"unit_cost"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"quantity"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"amount"`
	CatalogId     *uint           `json:"catalog_id,omitempty"`
}

// MigrateLocalStore creates the local schema.
func MigrateLocalStore(db *gorm.DB) error {
	return db.AutoMigrate(
		&ReportRecord{},
		&WorkerPayEntry{},
		&ExpenseEntry{},
		&DirectoryWorker{},
		&DirectoryRig{},
	)
}

// MatchesIdentity is the single dedup comparison point: two reports are
// considered the same unit of work when they share a calendar date and
// site. Swap this for a real idempotency key without touching call sites.
func MatchesIdentity(a, b *ReportRecord) bool {
	return a.ReportDate.Format("2006-01-02") == b.ReportDate.Format("2006-01-02") &&
		a.SiteLocation == b.SiteLocation
}

// SaveReport upserts a record by local id inside one transaction. A fresh
// record gets a generated local id and starts life as pending with zero
// attempts. Nested entries are replaced wholesale so the stored collection
// always reflects a complete read-modify-write, never a field patch.
func SaveReport(ctx context.Context, record *ReportRecord) error {
	if record.LocalId == "" {
		record.LocalId = uuid.New().String()
	}
	if record.Status == "" {
		record.Status = SyncStatusPending
		record.SyncAttempts = 0
	}

	for i := range record.Workers {
		record.Workers[i].ReportLocalId = record.LocalId
		record.Workers[i].Position = i
	}
	for i := range record.Expenses {
		record.Expenses[i].ReportLocalId = record.LocalId
		record.Expenses[i].Position = i
	}

	db := config.GetDB().WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		workers := record.Workers
		expenses := record.Expenses
		record.Workers = nil
		record.Expenses = nil
		defer func() {
			record.Workers = workers
			record.Expenses = expenses
		}()

		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error; err != nil {
			return err
		}
		if err := tx.Where("report_local_id = ?", record.LocalId).Delete(&WorkerPayEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_local_id = ?", record.LocalId).Delete(&ExpenseEntry{}).Error; err != nil {
			return err
		}
		if len(workers) > 0 {
			ws := make([]WorkerPayEntry, len(workers))
			copy(ws, workers)
			for i := range ws {
				ws[i].ID = 0
			}
			if err := tx.Create(&ws).Error; err != nil {
				return err
			}
		}
		if len(expenses) > 0 {
			es := make([]ExpenseEntry, len(expenses))
			copy(es, expenses)
			for i := range es {
				es[i].ID = 0
			}
			if err := tx.Create(&es).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetReport loads one record with its entries in stored order.
func GetReport(ctx context.Context, localId string) (*ReportRecord, error) {
	db := config.GetDB().WithContext(ctx)
	var record ReportRecord
	err := db.
		Preload("Workers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Expenses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("local_id = ?", localId).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListReports returns records filtered by status, every record when no
// statuses are given. Ordering is stable oldest-first.
func ListReports(ctx context.Context, statuses ...SyncStatus) ([]ReportRecord, error) {
	db := config.GetDB().WithContext(ctx)
	query := db.
		Preload("Workers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Expenses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at ASC, local_id ASC")
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var records []ReportRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// SyncCandidates returns the records a sweep may submit: pending or
// failed, oldest first. Skipped, conflict and synced records are excluded.
func SyncCandidates(ctx context.Context) ([]ReportRecord, error) {
	return ListReports(ctx, SyncStatusPending, SyncStatusFailed)
}

// DeleteReport hard-removes a record and its entries.
func DeleteReport(ctx context.Context, localId string) error {
	db := config.GetDB().WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_local_id = ?", localId).Delete(&WorkerPayEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_local_id = ?", localId).Delete(&ExpenseEntry{}).Error; err != nil {
			return err
		}
		result := tx.Where("local_id = ?", localId).Delete(&ReportRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return utils.ErrorRecordNotFound
		}
		return nil
	})
}

// MarkSyncing persists the in-flight transition before the record is
// submitted, so a crash mid-sweep never loses which record was current.
func MarkSyncing(ctx context.Context, localId string) error {
	now := time.Now().UTC()
	db := config.GetDB().WithContext(ctx)
	return db.Model(&ReportRecord{}).
		Where("local_id = ?", localId).
		Updates(map[string]interface{}{
			"status":          SyncStatusSyncing,
			"last_attempt_at": &now,
		}).Error
}

// MarkSynced records the server-assigned id and the confirmation time.
// The server id is written once; forced resubmissions keep the one they
// already carry.
func MarkSynced(ctx context.Context, localId string, serverId string) error {
	now := time.Now().UTC()
	db := config.GetDB().WithContext(ctx)
	updates := map[string]interface{}{
		"status":         SyncStatusSynced,
		"synced_at":      &now,
		"last_error":     "",
		"server_data":    nil,
		"force_resubmit": false,
	}
	if serverId != "" {
		updates["server_id"] = serverId
	}
	return db.Model(&ReportRecord{}).
		Where("local_id = ?", localId).
		Updates(updates).Error
}

// ResetInterruptedSyncing moves records stranded in syncing back to
// failed so the next sweep retries them. Sweeps are single-flight, so any
// record still syncing when a sweep starts was orphaned by a crash or a
// storage error on the result transition.
func ResetInterruptedSyncing(ctx context.Context) (int64, error) {
	db := config.GetDB().WithContext(ctx)
	result := db.Model(&ReportRecord{}).
		Where("status = ?", SyncStatusSyncing).
		Updates(map[string]interface{}{
			"status":     SyncStatusFailed,
			"last_error": "submission interrupted before a result was recorded",
		})
	return result.RowsAffected, result.Error
}

// RestoreSynced puts a record back into synced without disturbing its
// original confirmation time, so the retention window does not restart.
// A record that was never confirmed gets its confirmation time now.
func RestoreSynced(ctx context.Context, localId string) error {
	now := time.Now().UTC()
	db := config.GetDB().WithContext(ctx)
	return db.Model(&ReportRecord{}).
		Where("local_id = ?", localId).
		Updates(map[string]interface{}{
			"status":         SyncStatusSynced,
			"force_resubmit": false,
			"synced_at":      gorm.Expr("COALESCE(synced_at, ?)", &now),
		}).Error
}

// MarkFailed records a transport failure and keeps the record retryable.
func MarkFailed(ctx context.Context, localId string, errMsg string) error {
	db := config.GetDB().WithContext(ctx)
	return db.Model(&ReportRecord{}).
		Where("local_id = ?", localId).
		Updates(map[string]interface{}{
			"status":        SyncStatusFailed,
			"sync_attempts": gorm.Expr("sync_attempts + 1"),
			"last_error":    errMsg,
		}).Error
}

// MarkConflict parks the record for operator resolution, keeping the
// server's copy alongside so the resolver can present the divergence.
func MarkConflict(ctx context.Context, localId string, serverData []byte) error {
	db := config.GetDB().WithContext(ctx)
	return db.Model(&ReportRecord{}).
		Where("local_id = ?", localId).
		Updates(map[string]interface{}{
			"status":      SyncStatusConflict,
			"server_data": serverData,
		}).Error
}

// MarkStatus sets a bare status; used by the conflict resolver.
func MarkStatus(ctx context.Context, localId string, status SyncStatus, forceResubmit bool) error {
	db := config.GetDB().WithContext(ctx)
	return db.Model(&ReportRecord{}).
		Where("local_id = ?", localId).
		Updates(map[string]interface{}{
			"status":         status,
			"force_resubmit": forceResubmit,
		}).Error
}

// PendingCount is the UI's badge number: everything saved locally that the
// remote authority has not confirmed and the operator has not parked.
func PendingCount(ctx context.Context) (int64, error) {
	db := config.GetDB().WithContext(ctx)
	var count int64
	err := db.Model(&ReportRecord{}).
		Where("status IN ?", []SyncStatus{SyncStatusPending, SyncStatusFailed, SyncStatusSyncing}).
		Count(&count).Error
	return count, err
}

// LastSyncedAt returns the most recent confirmation time, nil when nothing
// has ever synced.
func LastSyncedAt(ctx context.Context) (*time.Time, error) {
	db := config.GetDB().WithContext(ctx)
	var record ReportRecord
	err := db.Where("synced_at IS NOT NULL").Order("synced_at DESC").Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.SyncedAt, nil
}

// FindSyncedByIdentity returns a synced record matching the dedup identity,
// nil when none exists. Used by the import bridge.
func FindSyncedByIdentity(ctx context.Context, candidate *ReportRecord) (*ReportRecord, error) {
	db := config.GetDB().WithContext(ctx)
	var records []ReportRecord
	err := db.Where("status = ?", SyncStatusSynced).
		Where("site_location = ?", candidate.SiteLocation).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	for i := range records {
		if MatchesIdentity(&records[i], candidate) {
			return &records[i], nil
		}
	}
	return nil, nil
}

// PurgeConfirmedBefore deletes synced records whose confirmation is older
// than the cutoff. Only synced records are eligible; the delete runs in
// one transaction with its entry cleanup so a concurrent save cannot
// resurrect a half-deleted record.
func PurgeConfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := config.GetDB().WithContext(ctx)
	var purged int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var victims []ReportRecord
		if err := tx.Select("local_id").
			Where("status = ? AND synced_at IS NOT NULL AND synced_at < ?", SyncStatusSynced, cutoff).
			Find(&victims).Error; err != nil {
			return err
		}
		if len(victims) == 0 {
			return nil
		}
		ids := make([]string, len(victims))
		for i, v := range victims {
			ids[i] = v.LocalId
		}
		if err := tx.Where("report_local_id IN ?", ids).Delete(&WorkerPayEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_local_id IN ?", ids).Delete(&ExpenseEntry{}).Error; err != nil {
			return err
		}
		result := tx.Where("local_id IN ?", ids).Delete(&ReportRecord{})
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return nil
	})
	return purged, err
}
