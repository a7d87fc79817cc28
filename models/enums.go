package models

// SyncStatus is the lifecycle state of a locally stored report record.
// Exactly one status is active at a time. Synced is terminal except for
// the retention sweeper's purge; Conflict is the persisted form of the
// conflict-pending state so it survives a restart.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSyncing  SyncStatus = "syncing"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusFailed   SyncStatus = "failed"
	SyncStatusSkipped  SyncStatus = "skipped"
	SyncStatusConflict SyncStatus = "conflict"
)

// JobType drives the income side of the derivation. Values are
// case-sensitive; anything else is treated as not-direct.
type JobType string

const (
	JobTypeDirect      JobType = "direct"
	JobTypeSubcontract JobType = "subcontract"
)

// MaterialsProvider drives cost inclusion. Values are case-sensitive;
// unrecognized values take the cost-included branch.
type MaterialsProvider string

const (
	MaterialsProviderCompany MaterialsProvider = "company"
	MaterialsProviderClient  MaterialsProvider = "client"
	MaterialsProviderStore   MaterialsProvider = "store"
)

type WageType string

const (
	WageTypeDaily WageType = "daily"
	WageTypeMeter WageType = "meter"
	WageTypeFixed WageType = "fixed"
)

// ConflictAction is an operator decision on a record the remote authority
// flagged as overlapping an existing server-side record.
type ConflictAction string

const (
	ConflictActionUseLocal  ConflictAction = "use_local"
	ConflictActionUseServer ConflictAction = "use_server"
	ConflictActionMerge     ConflictAction = "merge"
	ConflictActionSkip      ConflictAction = "skip"
)

func (a ConflictAction) Valid() bool {
	switch a {
	case ConflictActionUseLocal, ConflictActionUseServer, ConflictActionMerge, ConflictActionSkip:
		return true
	}
	return false
}

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)
