package schema

import (
	"errors"
	"fmt"
)

// ValidationError reports the first violation found in a record.
//
// DocID is set when the record was read back from a store, so the message
// can name the offending document. Skipped marks a document that was left
// out of a live result while the rest was still delivered.
type ValidationError struct {
	DocID   string
	Path    string
	Reason  string
	Skipped bool
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + e.Reason
	}
	if e.DocID != "" {
		if e.Skipped {
			return fmt.Sprintf("skipping invalid document with ID %s: %s", e.DocID, msg)
		}
		return fmt.Sprintf("invalid document with ID %s: %s", e.DocID, msg)
	}
	return "data validation failed: " + msg
}

// ForDocument returns a copy of err attributed to the document id. Errors
// that are not validation errors are wrapped as a reason.
func ForDocument(err error, id string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		cp := *ve
		cp.DocID = id
		return &cp
	}
	return &ValidationError{DocID: id, Reason: err.Error()}
}

// Skipping returns a copy of err marked as skipped. Errors that are not
// validation errors are returned unchanged.
func Skipping(err error) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	cp := *ve
	cp.Skipped = true
	return &cp
}

func violation(path, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
