package store

import "strings"

// isBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func isBusyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLITE_BUSY")
}

// isLockedError checks if the error is a "database is locked" error.
func isLockedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// isConflictError reports SQLite concurrency errors that warrant a retry.
func isConflictError(err error) bool {
	return isBusyError(err) || isLockedError(err)
}
