package validator

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Field is one declared attribute of an object.
type Field struct {
	Name      string
	Validator Validator
	Required  bool
}

// Object validates a JSON object against a fixed set of fields. Keys that are
// not declared are rejected unless the object is open. A null value counts
// as absent.
type Object struct {
	name       string
	fields     []Field
	index      map[string]int
	atLeastOne []string
	justOne    []string
	open       bool
}

// NewObject builds an object validator. Fields are checked in name order.
func NewObject(name string, fields ...Field) *Object {
	sorted := slices.Clone(fields)
	slices.SortFunc(sorted, func(a, b Field) int { return cmp.Compare(a.Name, b.Name) })
	o := &Object{name: name, fields: sorted, index: make(map[string]int, len(sorted))}
	for i, f := range sorted {
		o.index[f.Name] = i
	}
	return o
}

// WithConstraints adds cross-field presence rules: at least one of
// atLeastOne and exactly one of justOne must be present. It returns o.
func (o *Object) WithConstraints(atLeastOne, justOne []string) *Object {
	o.atLeastOne = slices.Clone(atLeastOne)
	o.justOne = slices.Clone(justOne)
	return o
}

// Open makes o accept keys it does not declare. It returns o.
func (o *Object) Open() *Object {
	o.open = true
	return o
}

// Name returns the object's corpus name.
func (o *Object) Name() string {
	return o.name
}

// Fields returns the declared fields in name order.
func (o *Object) Fields() []Field {
	return slices.Clone(o.fields)
}

// Field returns the declared field called name.
func (o *Object) Field(name string) (Field, bool) {
	i, ok := o.index[name]
	if !ok {
		return Field{}, false
	}
	return o.fields[i], true
}

func (o *Object) Check(value any, at Path) []Issue {
	record, ok := value.(map[string]any)
	if !ok {
		return typeIssue(at, "object", value)
	}

	var issues []Issue
	for _, f := range o.fields {
		v, present := record[f.Name]
		if !present || v == nil {
			if f.Required {
				issues = append(issues, Issue{
					Path:    at.Child(f.Name),
					Code:    CodeRequired,
					Message: "required attribute is missing",
				})
			}
			continue
		}
		issues = append(issues, f.Validator.Check(v, at.Child(f.Name))...)
	}

	if !o.open {
		for _, key := range slices.Sorted(maps.Keys(record)) {
			if _, declared := o.index[key]; !declared {
				issues = append(issues, Issue{
					Path:    at.Child(key),
					Code:    CodeUnrecognizedKey,
					Message: fmt.Sprintf("unrecognized attribute %q", key),
				})
			}
		}
	}

	return append(issues, o.checkConstraints(record, at)...)
}

func (o *Object) checkConstraints(record map[string]any, at Path) []Issue {
	var issues []Issue
	if len(o.atLeastOne) > 0 && countPresent(record, o.atLeastOne) == 0 {
		issues = append(issues, Issue{
			Path:    at,
			Code:    CodeConstraint,
			Message: fmt.Sprintf("at least one of [%s] must be present", strings.Join(o.atLeastOne, ", ")),
		})
	}
	if len(o.justOne) > 0 && countPresent(record, o.justOne) != 1 {
		issues = append(issues, Issue{
			Path:    at,
			Code:    CodeConstraint,
			Message: fmt.Sprintf("exactly one of [%s] must be present", strings.Join(o.justOne, ", ")),
		})
	}
	return issues
}

func countPresent(record map[string]any, keys []string) int {
	n := 0
	for _, k := range keys {
		if v, ok := record[k]; ok && v != nil {
			n++
		}
	}
	return n
}
