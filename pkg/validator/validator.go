// Package validator is the runtime the compiler targets. Every emitted object
// is an *Object built from primitive, enum, array and reference validators;
// every emitted event wraps its object in an *Event that normalizes a record
// before checking its structure.
//
// Objects that take part in a reference cycle refer to each other through
// Lazy validators. A Lazy validator resolves its target by name from a
// Registry on first use, so building a cyclic set never recurses and
// package initialization of generated code never forms a cycle. All other
// references are direct.
package validator

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/githubnext/ocsfc/pkg/normalize"
)

// Validator checks a decoded JSON value and reports every issue found.
// Implementations are immutable and safe for concurrent use.
type Validator interface {
	Check(value any, at Path) []Issue
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(value any, at Path) []Issue

func (f ValidatorFunc) Check(value any, at Path) []Issue {
	return f(value, at)
}

func typeIssue(at Path, want string, value any) []Issue {
	return []Issue{{
		Path:    at,
		Code:    CodeInvalidType,
		Message: fmt.Sprintf("expected %s, received %s", want, describe(value)),
	}}
}

// describe names the JSON type of a decoded value for messages.
func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	}
	if _, ok := normalize.Float64(value); ok {
		return "number"
	}
	if reflect.ValueOf(value).Kind() == reflect.Slice {
		return "array"
	}
	return fmt.Sprintf("%T", value)
}

// String accepts JSON strings.
func String() Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		if _, ok := value.(string); !ok {
			return typeIssue(at, "string", value)
		}
		return nil
	})
}

// Integer accepts integral numbers in the signed 32-bit range.
func Integer() Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		n, ok := normalize.Int64(value)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return typeIssue(at, "integer", value)
		}
		return nil
	})
}

// Long accepts integral numbers in the signed 64-bit range.
func Long() Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		if _, ok := normalize.Int64(value); !ok {
			return typeIssue(at, "long", value)
		}
		return nil
	})
}

// Float accepts any number.
func Float() Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		if _, ok := normalize.Float64(value); !ok {
			return typeIssue(at, "number", value)
		}
		return nil
	})
}

// Boolean accepts true and false.
func Boolean() Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		if _, ok := value.(bool); !ok {
			return typeIssue(at, "boolean", value)
		}
		return nil
	})
}

// JSON accepts any value.
func JSON() Validator {
	return ValidatorFunc(func(any, Path) []Issue { return nil })
}

// Unmapped accepts any JSON object. It backs attributes that carry
// free-form vendor data.
func Unmapped() Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		if _, ok := value.(map[string]any); !ok {
			return typeIssue(at, "object", value)
		}
		return nil
	})
}

// Enum accepts values that pass base and are one of values.
func Enum(base Validator, values ...int64) Validator {
	allowed := make(map[int64]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	sorted := slices.Sorted(maps.Keys(allowed))
	expected := make([]string, len(sorted))
	for i, v := range sorted {
		expected[i] = fmt.Sprint(v)
	}
	list := strings.Join(expected, ", ")

	return ValidatorFunc(func(value any, at Path) []Issue {
		if issues := base.Check(value, at); len(issues) > 0 {
			return issues
		}
		n, _ := normalize.Int64(value)
		if _, ok := allowed[n]; !ok {
			return []Issue{{
				Path:    at,
				Code:    CodeInvalidEnumValue,
				Message: fmt.Sprintf("invalid enum value %d, expected one of [%s]", n, list),
			}}
		}
		return nil
	})
}

// Array accepts a JSON array whose every element passes elem.
func Array(elem Validator) Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		if items, ok := value.([]any); ok {
			var issues []Issue
			for i, item := range items {
				issues = append(issues, elem.Check(item, at.Index(i))...)
			}
			return issues
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice {
			return typeIssue(at, "array", value)
		}
		var issues []Issue
		for i := range rv.Len() {
			issues = append(issues, elem.Check(rv.Index(i).Interface(), at.Index(i))...)
		}
		return issues
	})
}

// Ref validates against an object that is already built.
func Ref(o *Object) Validator {
	return o
}

// Lazy validates against an object that is built on first use.
func Lazy(d Deferred[*Object]) Validator {
	return ValidatorFunc(func(value any, at Path) []Issue {
		target := d.Get()
		if target == nil {
			return []Issue{{Path: at, Code: CodeUnresolvedReference, Message: "reference does not resolve to a registered object"}}
		}
		return target.Check(value, at)
	})
}
