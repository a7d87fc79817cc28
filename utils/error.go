package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrorSyncInProgress = errors.New("a sync sweep is already in progress")

var ErrorNotInConflict = errors.New("record is not awaiting conflict resolution")
