package schema

import (
	"fmt"
)

// Configuration error codes. Codes are stable identifiers suitable for
// programmatic matching; messages may change.
const (
	// CodeInvalidDefinition indicates the definition is not parseable YAML.
	CodeInvalidDefinition = "INVALID_DEFINITION"

	// CodeMissingRoot indicates the definition lacks the top-level Root key.
	CodeMissingRoot = "MISSING_ROOT"

	// CodeMissingType indicates a mapping node without a +type discriminator.
	CodeMissingType = "MISSING_TYPE"

	// CodeInvalidType indicates an unknown or malformed type name.
	CodeInvalidType = "INVALID_TYPE"

	// CodeUnknownConstraint indicates a key outside the reserved set, or a
	// reserved key that does not apply to the node's declared type.
	CodeUnknownConstraint = "UNKNOWN_CONSTRAINT"

	// CodeDuplicateConstraint indicates two spellings of the same constraint
	// on a single node.
	CodeDuplicateConstraint = "DUPLICATE_CONSTRAINT"

	// CodeInvalidConstraint indicates a constraint whose value has the wrong
	// shape, such as a negative length or a non-numeric bound.
	CodeInvalidConstraint = "INVALID_CONSTRAINT"

	// CodeInvalidBounds indicates a minimum bound above its maximum.
	CodeInvalidBounds = "INVALID_BOUNDS"

	// CodeInvalidPattern indicates a regular expression that does not compile.
	CodeInvalidPattern = "INVALID_PATTERN"

	// CodeInvalidExpr indicates an expression that does not compile or does
	// not produce bool.
	CodeInvalidExpr = "INVALID_EXPR"

	// CodeMissingKeyType indicates a Map without the +KeyType property.
	CodeMissingKeyType = "MISSING_KEY_TYPE"

	// CodeMissingValueType indicates a Map or List without the +ValueType
	// property.
	CodeMissingValueType = "MISSING_VALUE_TYPE"

	// CodeInvalidKeyType indicates a +KeyType outside the supported set.
	CodeInvalidKeyType = "INVALID_KEY_TYPE"

	// CodeDuplicateField indicates an Object declaring the same field twice.
	CodeDuplicateField = "DUPLICATE_FIELD"

	// CodeCyclicSchema indicates a node tree that references itself.
	CodeCyclicSchema = "CYCLIC_SCHEMA"

	// CodeTooDeep indicates definition nesting beyond the supported depth.
	CodeTooDeep = "SCHEMA_TOO_DEEP"
)

// ConfigError describes a defect in a schema definition. Configuration
// errors are detected while the schema is built, before any document is
// examined, and are strictly separate from data violations.
type ConfigError struct {
	// Path is the location of the defect within the definition, rooted at $.
	Path string

	// Code is one of the Code* constants.
	Code string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// newConfigError builds a ConfigError with a formatted message.
func newConfigError(path, code, format string, args ...any) *ConfigError {
	return &ConfigError{
		Path:    path,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("schema %s [%s]: %s", e.Path, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error. A target ConfigError matches
// when each of its non-empty Path and Code fields equals the corresponding
// field here, so errors.Is can match on code alone:
//
//	errors.Is(err, &schema.ConfigError{Code: schema.CodeUnknownConstraint})
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	if t.Path != "" && t.Path != e.Path {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return true
}
