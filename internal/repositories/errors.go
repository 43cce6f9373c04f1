// Package repositories persists users and video metadata.
package repositories

import "errors"

// Sentinel errors returned by every repository implementation. Callers match them with errors.Is.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)
