package template

import "errors"

var (
	// ErrUnknownTemplate is returned when a template name is not in the set
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrUnknownEnumValue is returned when an axis value has no literal
	ErrUnknownEnumValue = errors.New("value not in lookup table")
	// ErrUnresolvedAuto is returned when "auto" reaches a table lookup
	ErrUnresolvedAuto = errors.New(`"auto" must be resolved before composing`)
	// ErrMissingValue is returned when a placeholder has no value
	ErrMissingValue = errors.New("missing template value")
	// ErrMalformedTemplate is returned for unbalanced or invalid placeholders
	ErrMalformedTemplate = errors.New("malformed template")
)
