package dashboard

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("dashboard: validation failed")
	ErrPersistence      = errors.New("dashboard: persistence failed")
	ErrNotReady         = errors.New("dashboard: dashboard is still loading")
	ErrDocumentNotFound = errors.New("dashboard: document not found")
	ErrReportNotFound   = errors.New("dashboard: report not found")
	ErrMissingStore     = errors.New("dashboard: layout store not configured")
	ErrMissingUser      = errors.New("dashboard: viewer context missing user id")
	ErrClosed           = errors.New("dashboard: controller closed")
)

// ValidationError rejects a report that is not part of the catalog.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("dashboard: invalid report: %s", e.Reason)
	}
	return fmt.Sprintf("dashboard: invalid report %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PersistenceError reports a failed Layout Store write.
type PersistenceError struct {
	UserID  string
	Version uint64
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("dashboard: save dashboard for %s (version %d): %v", e.UserID, e.Version, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
