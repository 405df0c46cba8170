package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidDay = errors.New("invalid match day")
	ErrClosed     = errors.New("store closed")
)
