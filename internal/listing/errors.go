package listing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidField      = errors.New("invalid field")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidImageData  = errors.New("invalid image data")
	ErrCorruptAsset      = errors.New("corrupt image asset")
	ErrNotFound          = errors.New("listing not found")
	ErrConflict          = errors.New("listing already exists")
)

// ValidationError names the offending field. It matches its Kind with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Kind   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s", e.Field, e.Kind, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Invalid is shorthand for a field-level ErrInvalidField.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Kind: ErrInvalidField}
}

// AssetError reports a failure for one photo within a batch.
type AssetError struct {
	Index int
	Name  string
	Err   error
}

func (e *AssetError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("photo %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("photo %d: %v", e.Index, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }
