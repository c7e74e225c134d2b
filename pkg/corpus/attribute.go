package corpus

import (
	"maps"
	"slices"

	"github.com/githubnext/ocsfc/pkg/constants"
)

// Kind classifies an attribute for code generation.
type Kind int

const (
	// KindPrimitive is a scalar validated by its base type.
	KindPrimitive Kind = iota
	// KindObject references another object entity by name.
	KindObject
	// KindEnum is a primitive restricted to a declared set of integer values.
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindObject:
		return "object"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Requirement is the OCSF requirement level of an attribute.
type Requirement string

const (
	Required    Requirement = "required"
	Recommended Requirement = "recommended"
	Optional    Requirement = "optional"
)

// EnumValue is one entry of an enumerated value table.
type EnumValue struct {
	Value       int64
	Caption     string
	Description string
}

// Deprecation marks an attribute as deprecated.
type Deprecation struct {
	Message string `json:"message"`
	Since   string `json:"since"`
}

// AttributeDefinition is a fully merged attribute of an entity.
type AttributeDefinition struct {
	Name string
	Kind Kind
	// Type is the raw type token from the corpus (string_t, process, ...).
	Type string
	// BaseType is the structural type of primitive and enum attributes.
	BaseType    constants.BaseType
	IsArray     bool
	Requirement Requirement
	Caption     string
	Description string
	// Sibling names the paired label (or id) attribute.
	Sibling string
	// Enum is sorted ascending by Value with at most one entry per value.
	Enum       []EnumValue
	Deprecated *Deprecation
	Group      string
}

// IsRequired reports whether the attribute must be present.
func (a AttributeDefinition) IsRequired() bool {
	return a.Requirement == Required
}

// ObjectType returns the referenced object name for object attributes.
func (a AttributeDefinition) ObjectType() (string, bool) {
	if a.Kind != KindObject {
		return "", false
	}
	return a.Type, true
}

// IsUnmapped reports whether the attribute holds free-form vendor data.
func (a AttributeDefinition) IsUnmapped() bool {
	return a.Kind == KindObject && a.Type == constants.FreeFormObject
}

// EnumLabels returns the enum table as a value -> caption map.
func (a AttributeDefinition) EnumLabels() map[int64]string {
	labels := make(map[int64]string, len(a.Enum))
	for _, e := range a.Enum {
		labels[e.Value] = e.Caption
	}
	return labels
}

// PartialAttributeDefinition is a sparse attribute as it appears in a
// descriptor or the dictionary. A nil field means "not declared here".
type PartialAttributeDefinition struct {
	Caption     *string                    `json:"caption"`
	Description *string                    `json:"description"`
	Type        *string                    `json:"type"`
	IsArray     *bool                      `json:"is_array"`
	Requirement *Requirement               `json:"requirement"`
	Sibling     *string                    `json:"sibling"`
	Enum        map[int64]PartialEnumValue `json:"enum"`
	Deprecated  *Deprecation               `json:"@deprecated"`
	Group       *string                    `json:"group"`
}

// PartialEnumValue is an enum entry as declared in JSON, keyed by its value.
type PartialEnumValue struct {
	Caption     string `json:"caption"`
	Description string `json:"description"`
}

// Merge overlays override onto base field by field. Fields declared in
// override win; enum tables are unioned by value with override entries
// replacing base entries of the same value. Kind and BaseType are not
// touched; they are derived from the merged Type by the loader.
func Merge(base AttributeDefinition, override PartialAttributeDefinition) AttributeDefinition {
	merged := base
	if override.Caption != nil {
		merged.Caption = *override.Caption
	}
	if override.Description != nil {
		merged.Description = *override.Description
	}
	if override.Type != nil {
		merged.Type = *override.Type
	}
	if override.IsArray != nil {
		merged.IsArray = *override.IsArray
	}
	if override.Requirement != nil {
		merged.Requirement = *override.Requirement
	}
	if override.Sibling != nil {
		merged.Sibling = *override.Sibling
	}
	if override.Deprecated != nil {
		d := *override.Deprecated
		merged.Deprecated = &d
	}
	if override.Group != nil {
		merged.Group = *override.Group
	}
	merged.Enum = mergeEnum(base.Enum, override.Enum)
	return merged
}

// mergeEnum unions base and override by value and returns a new slice sorted ascending.
func mergeEnum(base []EnumValue, override map[int64]PartialEnumValue) []EnumValue {
	if len(override) == 0 {
		return slices.Clone(base)
	}
	byValue := make(map[int64]EnumValue, len(base)+len(override))
	for _, e := range base {
		byValue[e.Value] = e
	}
	for v, e := range override {
		byValue[v] = EnumValue{Value: v, Caption: e.Caption, Description: e.Description}
	}
	values := slices.Sorted(maps.Keys(byValue))
	merged := make([]EnumValue, 0, len(values))
	for _, v := range values {
		merged = append(merged, byValue[v])
	}
	return merged
}
