package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// Error categories used by HTTP handlers to pick a status code.
// Wrap with fmt.Errorf("%w: ...", ErrorConflict) and test with errors.Is.
var (
	// ErrorValidation: malformed or out-of-range input; caller can correct and retry.
	ErrorValidation = errors.New("validation failed")
	// ErrorConflict: the operation is not valid for the record's current status,
	// or a concurrent writer won the status race. Caller must re-fetch.
	ErrorConflict = errors.New("conflict")
	// ErrorForbidden: actor role below the operation's minimum.
	// Deliberately carries no status detail so an unauthorized caller learns nothing.
	ErrorForbidden = errors.New("forbidden")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
