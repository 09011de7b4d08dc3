package quota

import "errors"

var (
	ErrLimitExceeded        = errors.New("usage limit exceeded")
	ErrInvalidResource      = errors.New("invalid usage resource")
	ErrDowngradeNotPossible = errors.New("downgrade not possible with current usage")
	ErrFailedToCountUsage   = errors.New("failed to load usage counters")
	ErrCountersNotFound     = errors.New("usage counters not found")
)
