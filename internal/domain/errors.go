package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrPersistence     = errors.New("persistence failure")
	// ErrNotConfigured reports missing deployment configuration, such as a
	// database connection string or blob storage bucket, at first use.
	ErrNotConfigured = errors.New("not configured")
)

// FileError ties a failure to the uploaded file that caused it.
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %q: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a client input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrFileTooLarge)
}
