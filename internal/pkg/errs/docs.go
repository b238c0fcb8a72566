// Package errs provides the error types shared by the order workflow service.
//
// Every type follows one pattern:
//   - a sentinel (ErrObjectNotFound, ErrObjectConflict, ErrValueIsInvalid,
//     ErrValueIsOutOfRange, ErrValueIsRequired)
//   - a struct carrying the offending parameter and an optional cause
//   - New...Error and New...ErrorWithCause constructors
//   - Unwrap returning the sentinel, so callers branch with errors.Is
//
// Domain packages return these types; the workflow engine maps repository
// ObjectNotFoundError results onto its own ErrOrderNotFound.
package errs
