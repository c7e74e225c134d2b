package corpus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/githubnext/ocsfc/pkg/logger"
)

var errorsLog = logger.New("corpus:errors")

var (
	// ErrUntyped is reported for an attribute that is neither in the dictionary nor declares a type.
	ErrUntyped = errors.New("attribute is not in the dictionary and declares no type")
	// ErrDuplicateEntity is reported when two descriptors declare the same name.
	ErrDuplicateEntity = errors.New("duplicate entity name")
	// ErrMissingName is reported for a descriptor without a name.
	ErrMissingName = errors.New("descriptor has no name")
	// ErrInvalidVersion is reported when version.json does not hold a semantic version.
	ErrInvalidVersion = errors.New("invalid corpus version")
)

// Error is a corpus error located at a descriptor file and, when known, an
// entity and attribute.
type Error struct {
	File      string
	Entity    string
	Attribute string
	Err       error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Entity != "" {
		fmt.Fprintf(&sb, "entity %q: ", e.Entity)
	}
	if e.Attribute != "" {
		fmt.Fprintf(&sb, "attribute %q: ", e.Attribute)
	}
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCollector collects corpus errors so one load reports every broken
// descriptor. In fail-fast mode Add returns the first error immediately.
type ErrorCollector struct {
	errors   []error
	failFast bool
}

// NewErrorCollector creates a new error collector
func NewErrorCollector(failFast bool) *ErrorCollector {
	return &ErrorCollector{failFast: failFast}
}

// Add records err. In fail-fast mode err is returned so the caller can stop.
func (c *ErrorCollector) Add(err error) error {
	if err == nil {
		return nil
	}
	errorsLog.Printf("Corpus error: %v", err)
	if c.failFast {
		return err
	}
	c.errors = append(c.errors, err)
	return nil
}

// HasErrors returns true if any errors have been collected
func (c *ErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// Count returns the number of errors collected
func (c *ErrorCollector) Count() int {
	return len(c.errors)
}

// Error returns nil, the single collected error, or all of them joined.
func (c *ErrorCollector) Error() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	}
	return errors.Join(c.errors...)
}
