package validation

import "errors"

var (
	ErrInvalidLimit    = errors.New("limit must be a positive integer")
	ErrLimitOutOfRange = errors.New("limit exceeds maximum")
	ErrInvalidLevel    = errors.New("level must be one of error, warn, info, debug, trace")
	ErrMissingLevel    = errors.New("level is required")
)
