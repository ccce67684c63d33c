package collection

import (
	"errors"
	"fmt"

	"github.com/stevemurr/todo-sync-server/schema"
)

// OperationError reports a failure of the backing store during Op.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("store %s operation failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *schema.ValidationError.
func IsValidation(err error) bool {
	var ve *schema.ValidationError
	return errors.As(err, &ve)
}

// IsOperation reports whether err carries an *OperationError.
func IsOperation(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe)
}

// Wrap passes validation and operation errors through unchanged and tags
// anything else as a failure of op. Nil stays nil.
func Wrap(op string, err error) error {
	if err == nil || IsValidation(err) || IsOperation(err) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}
