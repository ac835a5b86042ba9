package profile

import (
	"fmt"

	"github.com/dmitrijs2005/coachportal/internal/common"
)

// GenericWriteFailure is shown when a failed write carries no server text.
const GenericWriteFailure = "could not save your profile, please try again"

// ValidationError rejects a submission before anything is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// WriteError is a failed remote write. Message is the server's own text
// when it sent one.
type WriteError struct {
	Message string
	Err     error
}

func (e *WriteError) Error() string { return e.Message }

func (e *WriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrWrite}
	}
	return []error{common.ErrWrite, e.Err}
}
