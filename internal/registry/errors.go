// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRecord matches every record validation failure via errors.Is.
var ErrInvalidRecord = errors.New("invalid registry record")

// MissingFieldError names required fields absent from a record.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrInvalidRecord }

// FieldTypeError names a field whose value has the wrong type or shape.
type FieldTypeError struct {
	Field string
	Want  string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %s has wrong type: want %s", e.Field, e.Want)
}

func (e *FieldTypeError) Is(target error) bool { return target == ErrInvalidRecord }

// DateFormatError reports a published value that is not an ISO 8601 date.
type DateFormatError struct {
	Value string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("published %q must be an ISO 8601 date or timestamp", e.Value)
}

func (e *DateFormatError) Is(target error) bool { return target == ErrInvalidRecord }
