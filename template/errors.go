package template

import (
	"errors"
	"fmt"
)

// Sentinel errors for template configuration defects.
var (
	ErrInvalidTemplate = errors.New("template: invalid template")
	ErrUnknownElement  = errors.New("template: unknown element type")
	ErrMissingField    = errors.New("template: missing required field")
	ErrInvalidValue    = errors.New("template: invalid value")
	ErrEmptyColumns    = errors.New("template: repeating table has no columns")
)

// ElementError reports a configuration defect on a specific template element.
type ElementError struct {
	Index int    // position in the elements list
	Kind  string // declared element type, as written
	Field string // offending field, if any
	Err   error
}

func (e *ElementError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("element #%d (%s): field %s: %v", e.Index, e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("element #%d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

func elementErr(index int, kind, field string, err error) *ElementError {
	return &ElementError{Index: index, Kind: kind, Field: field, Err: err}
}
