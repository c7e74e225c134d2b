package corpus

import (
	"fmt"
	"html"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/logger"
)

var dictionaryLog = logger.New("corpus:dictionary")

// maxTypeDepth bounds the walk from a derived type token to its base.
const maxTypeDepth = 8

// TypeDefinition is an entry of the dictionary "types" section.
type TypeDefinition struct {
	Caption     string `json:"caption"`
	Description string `json:"description"`
	// Type is the token this type derives from, empty for builtin base types.
	Type   string `json:"type"`
	MaxLen int    `json:"max_len"`
	Regex  string `json:"regex"`
}

// Dictionary is the immutable snapshot of canonical attribute definitions
// every entity override is merged against. It is built once per load and
// passed explicitly; nothing mutates it afterwards.
type Dictionary struct {
	attributes map[string]AttributeDefinition
	types      map[string]TypeDefinition
}

// NewDictionary builds a dictionary from raw JSON entries.
func NewDictionary(attributes map[string]PartialAttributeDefinition, types map[string]TypeDefinition) *Dictionary {
	d := &Dictionary{
		attributes: make(map[string]AttributeDefinition, len(attributes)),
		types:      maps.Clone(types),
	}
	for name, partial := range attributes {
		d.attributes[name] = Merge(AttributeDefinition{Name: name}, partial)
	}
	dictionaryLog.Printf("Dictionary built: attributes=%d, types=%d", len(d.attributes), len(d.types))
	return d
}

// Attribute returns the canonical definition of name. The returned value
// shares no mutable state with the dictionary.
func (d *Dictionary) Attribute(name string) (AttributeDefinition, bool) {
	a, ok := d.attributes[name]
	if !ok {
		return AttributeDefinition{}, false
	}
	a.Enum = slices.Clone(a.Enum)
	return a, true
}

// Len returns the number of attribute definitions.
func (d *Dictionary) Len() int {
	return len(d.attributes)
}

// BaseType resolves a primitive type token to its base type, following
// derived types declared in the dictionary. Unknown primitive tokens resolve
// to string.
func (d *Dictionary) BaseType(token string) constants.BaseType {
	current := token
	for range maxTypeDepth {
		if base, ok := constants.LookupPrimitive(current); ok {
			return base
		}
		def, ok := d.types[current]
		if !ok || def.Type == "" || def.Type == current {
			break
		}
		current = def.Type
	}
	dictionaryLog.Printf("Unknown primitive type %q, validating as string", token)
	return constants.BaseString
}

// resolve merges override onto the dictionary entry for name, normalizes the
// description and classifies the result.
func (d *Dictionary) resolve(name string, override PartialAttributeDefinition) (AttributeDefinition, error) {
	base, ok := d.Attribute(name)
	if !ok {
		base = AttributeDefinition{Name: name}
	}
	merged := Merge(base, override)
	if merged.Type == "" {
		return AttributeDefinition{}, ErrUntyped
	}
	if merged.Requirement == "" {
		merged.Requirement = Optional
	}
	merged.Description = NormalizeDescription(merged.Description)
	return d.classify(merged)
}

// classify derives Kind and BaseType from the type token: a token ending in
// the primitive suffix is a primitive (an enum when it declares values), any
// other token names an object.
func (d *Dictionary) classify(a AttributeDefinition) (AttributeDefinition, error) {
	if !strings.HasSuffix(a.Type, constants.PrimitiveSuffix) {
		if len(a.Enum) > 0 {
			return a, fmt.Errorf("object reference %q cannot declare enum values", a.Type)
		}
		a.Kind = KindObject
		a.BaseType = ""
		return a, nil
	}
	a.BaseType = d.BaseType(a.Type)
	a.Kind = KindPrimitive
	if len(a.Enum) > 0 {
		a.Kind = KindEnum
	}
	return a, nil
}

var (
	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</li>`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
)

// NormalizeDescription strips HTML markup from a corpus description,
// unescapes entities and collapses whitespace.
func NormalizeDescription(s string) string {
	if s == "" {
		return ""
	}
	s = lineBreakTag.ReplaceAllString(s, " ")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
