package emitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/stringutil"
)

var jsonSchemaLog = logger.New("emitter:jsonschema")

// DefaultSchemaBaseURL is the base URL of emitted JSON Schema document ids.
const DefaultSchemaBaseURL = "https://schema.ocsf.io/jsonschema/"

const draft202012 = "https://json-schema.org/draft/2020-12/schema"

// SchemaPath returns the path of a unit's JSON Schema document relative to
// the jsonschema output directory: objects/<name>.schema.json or
// events/<name>.schema.json.
func SchemaPath(u *Unit) string {
	dir := "objects"
	if u.IsEvent() {
		dir = "events"
	}
	return path.Join(dir, stringutil.SchemaFileName(u.Entity.Name))
}

// SchemaURL returns the $id of a unit's JSON Schema document.
func SchemaURL(baseURL string, u *Unit) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + SchemaPath(u)
}

// JSONSchema builds the JSON Schema 2020-12 document of one unit. Object
// references become $ref to the target's document. The documents describe
// records after normalization.
func JSONSchema(p *Plan, u *Unit, baseURL string) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{
		Schema:      draft202012,
		ID:          SchemaURL(baseURL, u),
		Title:       u.Entity.Caption,
		Description: u.Entity.Description,
		Type:        "object",
		Properties:  make(map[string]*jsonschema.Schema, len(u.Fields)),
	}
	if !u.IsOpen() {
		s.AdditionalProperties = falseSchema()
	}

	for _, f := range u.Fields {
		prop, err := jsonSchemaProperty(p, f, baseURL)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", u.Entity.Type, u.Entity.Name, err)
		}
		s.Properties[f.Attribute.Name] = prop
		if f.Attribute.IsRequired() {
			s.Required = append(s.Required, f.Attribute.Name)
		}
	}

	if c := u.Entity.Constraints; len(c.AtLeastOne) > 0 {
		s.AnyOf = requiredEach(c.AtLeastOne)
	}
	if c := u.Entity.Constraints; len(c.JustOne) > 0 {
		s.OneOf = requiredEach(c.JustOne)
	}
	return s, nil
}

func jsonSchemaProperty(p *Plan, f FieldPlan, baseURL string) (*jsonschema.Schema, error) {
	a := f.Attribute
	var s *jsonschema.Schema
	switch {
	case a.IsUnmapped():
		s = &jsonschema.Schema{Type: "object"}
	case a.Kind == corpus.KindObject:
		target, ok := p.Unit(f.Target.Key())
		if !ok {
			return nil, fmt.Errorf("attribute %q references %q, which is not emitted", a.Name, f.Target.Name)
		}
		s = &jsonschema.Schema{Ref: SchemaURL(baseURL, target)}
	default:
		s = jsonSchemaBase(a.BaseType)
		if a.Kind == corpus.KindEnum {
			s.Enum = make([]any, len(a.Enum))
			for i, e := range a.Enum {
				s.Enum[i] = e.Value
			}
		}
	}

	if a.IsArray {
		s = &jsonschema.Schema{Type: "array", Items: s}
	}
	s.Title = a.Caption
	s.Description = a.Description
	s.Deprecated = a.Deprecated != nil
	return s, nil
}

func jsonSchemaBase(t constants.BaseType) *jsonschema.Schema {
	switch t {
	case constants.BaseInteger:
		return &jsonschema.Schema{Type: "integer", Minimum: floatPtr(math.MinInt32), Maximum: floatPtr(math.MaxInt32)}
	case constants.BaseLong:
		return &jsonschema.Schema{Type: "integer"}
	case constants.BaseFloat:
		return &jsonschema.Schema{Type: "number"}
	case constants.BaseBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	case constants.BaseJSON:
		return &jsonschema.Schema{}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

func requiredEach(names []string) []*jsonschema.Schema {
	out := make([]*jsonschema.Schema, len(names))
	for i, name := range names {
		out[i] = &jsonschema.Schema{Required: []string{name}}
	}
	return out
}

func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func floatPtr(v float64) *float64 {
	return &v
}

// MarshalSchema encodes a document as indented JSON with a trailing newline.
func MarshalSchema(s *jsonschema.Schema) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// SchemaSet is a compiled set of emitted JSON Schema documents.
type SchemaSet struct {
	schemas map[string]*sjsonschema.Schema
}

// CompileJSONSchemas compiles every JSON Schema artifact with an independent
// JSON Schema implementation. Each document is added under its $id so
// cross-document references resolve without network access.
func CompileJSONSchemas(artifacts []Artifact) (*SchemaSet, error) {
	c := sjsonschema.NewCompiler()
	c.DefaultDraft(sjsonschema.Draft2020)

	var urls []string
	for _, a := range artifacts {
		if a.Format != FormatJSONSchema {
			continue
		}
		doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(a.Data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Path, err)
		}
		if err := c.AddResource(a.URL, doc); err != nil {
			return nil, fmt.Errorf("%s: %w", a.Path, err)
		}
		urls = append(urls, a.URL)
	}

	set := &SchemaSet{schemas: make(map[string]*sjsonschema.Schema, len(urls))}
	for _, url := range urls {
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("emitted schema %s does not compile: %w", url, err)
		}
		set.schemas[url] = sch
	}
	jsonSchemaLog.Printf("Compiled %d JSON Schema documents", len(set.schemas))
	return set, nil
}

// VerifyJSONSchemas reports whether every emitted JSON Schema document compiles.
func VerifyJSONSchemas(artifacts []Artifact) error {
	_, err := CompileJSONSchemas(artifacts)
	return err
}

// Len returns the number of compiled documents.
func (s *SchemaSet) Len() int {
	return len(s.schemas)
}

// Validate checks record against the document with the given $id. Null
// members are dropped first, since a null attribute counts as absent. The
// record is round-tripped through JSON so any Go value shape is accepted.
func (s *SchemaSet) Validate(url string, record any) error {
	sch, ok := s.schemas[url]
	if !ok {
		return fmt.Errorf("no compiled schema %s", url)
	}
	data, err := json.Marshal(dropNulls(record))
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	inst, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return sch.Validate(inst)
}

func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if child != nil {
				out[k] = dropNulls(child)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = dropNulls(child)
		}
		return out
	}
	return v
}
