package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// errors
	ErrNotFound        = errors.New("session not found")
	ErrYearNotFound    = errors.New("academic year not found")
	ErrClassNotFound   = errors.New("classroom not found")
	ErrFairyNotFound   = errors.New("book fairy not found")
	ErrStudentNotFound = errors.New("student not found")

	// ErrDuplicateLending guards the (session, inventory, student) ledger key.
	ErrDuplicateLending = errors.New("book copy already on the session ledger for this student")

	// state errors: the session is in the wrong state for the operation;
	// terminal, never retried.
	ErrAlreadyVerified  = errors.New("session already verified")
	ErrNotEvaluated     = errors.New("session is not evaluated")
	ErrAlreadyFinalized = errors.New("session already evaluated or verified")
	ErrWrongType        = errors.New("operation not valid for this session type")
	ErrHasRecords       = errors.New("session has evaluation records and cannot be deleted")
)

// IsStateError reports whether err is a session state-machine violation.
func IsStateError(err error) bool {
	switch err {
	case ErrAlreadyVerified, ErrNotEvaluated, ErrAlreadyFinalized, ErrWrongType, ErrHasRecords:
		return true
	}
	return false
}

// IncompleteError rejects a submission while eligible students remain
// unevaluated.
type IncompleteError struct {
	MissingStudentIDs []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("all students have not been evaluated: %s", strings.Join(e.MissingStudentIDs, ", "))
}
