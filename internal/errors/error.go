package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRequiredFields = errors.New("missing required fields")
	ErrEmptyFile             = errors.New("cannot upload empty file")
	ErrPipelineUsed          = errors.New("upload pipeline has already been run")
	ErrBucketFull            = errors.New("postage bucket is full")
	ErrInvalidDepth          = errors.New("batch depth must be between 16 and 100")
	ErrRecordNotFound        = errors.New("upload record not found")
)

// EncodingError reports malformed input to the stamp signer. It is never retried.
type EncodingError struct {
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// LengthError builds an EncodingError for a field of the wrong byte length.
func LengthError(field string, want, got int) error {
	return &EncodingError{
		Field: field,
		Err:   fmt.Errorf("expected %d bytes, got %d bytes", want, got),
	}
}

// IntegrityError reports that the storage node returned a reference other
// than the locally computed chunk address.
type IntegrityError struct {
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("expected %s but got %s", e.Expected, e.Actual)
}

// NetworkError wraps a transport or HTTP failure talking to the storage node.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether an upload attempt that failed with err may be
// attempted again. Encoding errors and full postage buckets are permanent.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrBucketFull) {
		return false
	}
	var encodingErr *EncodingError
	return !errors.As(err, &encodingErr)
}

// ConfigNotSetError generates a formatted error for a required configuration key.
func ConfigNotSetError(config string) error {
	return fmt.Errorf("the %s configuration value must be set", config)
}
