package models

import (
	"errors"
	"fmt"
)

// ErrNoProgress is wrapped by an UploadError when the server keeps accepting
// zero products after every retry attempt.
var ErrNoProgress = errors.New("no progress")

// AuthenticationError reports a failure to obtain an access token.
type AuthenticationError struct {
	StatusCode int
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// DataError reports a malformed input file. Row is 0 when the problem is not
// tied to a single row.
type DataError struct {
	File string
	Row  int
	Err  error
}

func (e *DataError) Error() string {
	switch {
	case e.File != "" && e.Row > 0:
		return fmt.Sprintf("invalid data in %s row %d: %v", e.File, e.Row, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("invalid data in row %d: %v", e.Row, e.Err)
	case e.File != "":
		return fmt.Sprintf("invalid data in %s: %v", e.File, e.Err)
	default:
		return fmt.Sprintf("invalid data: %v", e.Err)
	}
}

func (e *DataError) Unwrap() error { return e.Err }

// UploadError reports a failed batch submission. Offset is the number of
// products confirmed before the failure.
type UploadError struct {
	Offset     int
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed at offset %d (status %d): %v", e.Offset, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload failed at offset %d: %v", e.Offset, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ValidationError reports a failed call to the validation endpoint.
type ValidationError struct {
	StatusCode int
	Err        error
}

func (e *ValidationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("validation failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
