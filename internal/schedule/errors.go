package schedule

import "errors"

var (
	ErrEmptyID       = errors.New("schedule id required")
	ErrDuplicateID   = errors.New("duplicate schedule id")
	ErrNotFound      = errors.New("schedule not found")
	ErrUnknownKind   = errors.New("unknown schedule kind")
	ErrInvalidCron   = errors.New("invalid cron expression")
	ErrUnsatisfiable = errors.New("cron expression has no future instant")
)
