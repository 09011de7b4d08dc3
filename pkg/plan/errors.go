package plan

import "errors"

var (
	ErrUnknownTier    = errors.New("unknown subscription tier")
	ErrPlanNotFound   = errors.New("plan not found in catalog")
	ErrPackNotFound   = errors.New("minute pack not found in catalog")
	ErrInvalidCatalog = errors.New("invalid plan catalog configuration")
	ErrFailedToLoad   = errors.New("failed to load plan catalog")
)
