package validator

import (
	"fmt"
	"strings"
)

// Code classifies an Issue.
type Code string

const (
	CodeInvalidType         Code = "invalid_type"
	CodeRequired            Code = "required"
	CodeUnrecognizedKey     Code = "unrecognized_key"
	CodeInvalidEnumValue    Code = "invalid_enum_value"
	CodeConstraint          Code = "constraint"
	CodeNormalization       Code = "normalization"
	CodeUnresolvedReference Code = "unresolved_reference"
)

// Issue is one validation failure at one location.
type Issue struct {
	Path    Path   `json:"path"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// String renders the issue as "path: message".
func (i Issue) String() string {
	if len(i.Path) == 0 {
		return i.Message
	}
	return i.Path.String() + ": " + i.Message
}

// ValidationError is returned by Event.Parse. It carries every issue found;
// a normalization failure carries exactly one issue and unwraps to the
// underlying *normalize.MismatchError.
type ValidationError struct {
	Entity string
	Issues []Issue
	cause  error
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", e.Entity, e.Issues[0])
	}
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	return fmt.Sprintf("%s: %d issues:\n%s", e.Entity, len(e.Issues), strings.Join(lines, "\n"))
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}
