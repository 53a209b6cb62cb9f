package editor

import (
	"fmt"
	"strings"
)

// FieldError is one rejected form field. Key is an i18n message key.
type FieldError struct {
	Field string
	Key   string
}

// ValidationError lists every rejected field. It is returned before any
// remote call is made.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Key)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) MessageKey() string {
	if len(e.Fields) == 0 {
		return "err.internal"
	}
	return e.Fields[0].Key
}

// For returns the message key for field, or "".
func (e *ValidationError) For(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Key
		}
	}
	return ""
}

func (e *ValidationError) add(field, key string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Key: key})
}

// UploadError means the document could not be stored. No article was
// created or changed.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload document: %v", e.Err) }

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) MessageKey() string { return "err.upload" }
