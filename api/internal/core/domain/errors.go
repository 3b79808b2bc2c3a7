package domain

import "errors"

// Error taxonomy for the report vault. Callers match with errors.Is; the
// HTTP layer maps each sentinel to a status code.
var (
	ErrConfig            = errors.New("configuration error")
	ErrIntegrity         = errors.New("integrity violation")
	ErrFormat            = errors.New("malformed data")
	ErrInvalidToken      = errors.New("invalid download token")
	ErrExpiredToken      = errors.New("download token expired")
	ErrThrottleExceeded  = errors.New("download limit exceeded")
	ErrNotFound          = errors.New("not found")
	ErrInvalidIdentifier = errors.New("invalid report identifier")
)
