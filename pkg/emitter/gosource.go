package emitter

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/logger"
)

var goSourceLog = logger.New("emitter:gosource")

//go:embed templates/entity.go.tmpl
var entityTemplateSource string

//go:embed templates/registry.go.tmpl
var registryTemplateSource string

var (
	templateFuncs    = template.FuncMap{"quote": strconv.Quote}
	entityTemplate   = template.Must(template.New("entity").Funcs(templateFuncs).Parse(entityTemplateSource))
	registryTemplate = template.Must(template.New("registry").Funcs(templateFuncs).Parse(registryTemplateSource))
)

// DefaultPackage is the package name of generated Go code.
const DefaultPackage = "ocsf"

// RegistryFileName is the generated file declaring the shared registry.
const RegistryFileName = "registry.go"

type goField struct {
	Name     string
	Expr     string
	Required bool
	Deferred bool
}

type goSibling struct {
	IDField    string
	LabelField string
	Labels     string
}

type goEntity struct {
	Version     string
	Package     string
	Name        string
	GoName      string
	SchemaVar   string
	Doc         string
	Event       bool
	Fields      []goField
	Modifiers   string
	Siblings    []goSibling
	CategoryUID int64
	ClassUID    int64
}

// GoSource renders the Go file of one unit, formatted with gofmt.
func GoSource(p *Plan, u *Unit, pkg string) ([]byte, error) {
	data := goEntity{
		Version:     p.Version(),
		Package:     pkg,
		Name:        u.Entity.Name,
		GoName:      u.GoName,
		SchemaVar:   lowerFirst(u.GoName) + "Schema",
		Doc:         goDoc(u),
		Event:       u.IsEvent(),
		Modifiers:   goModifiers(u),
		CategoryUID: u.Entity.CategoryUID,
		ClassUID:    u.Entity.ClassUID,
	}
	for _, f := range u.Fields {
		expr, err := goValidatorExpr(p, f)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", u.Entity.Type, u.Entity.Name, err)
		}
		data.Fields = append(data.Fields, goField{
			Name:     f.Attribute.Name,
			Expr:     expr,
			Required: f.Attribute.IsRequired(),
			Deferred: f.Strategy == Deferred,
		})
	}
	for _, pair := range u.Entity.Siblings {
		data.Siblings = append(data.Siblings, goSibling{
			IDField:    pair.IDField,
			LabelField: pair.LabelField,
			Labels:     goLabels(pair.Labels),
		})
	}

	var buf bytes.Buffer
	if err := entityTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", u.Entity.Name, err)
	}
	return formatGo(u.Entity.Name, buf.Bytes())
}

// GoRegistry renders the file declaring the package registry.
func GoRegistry(p *Plan, pkg string) ([]byte, error) {
	data := struct {
		Version     string
		Package     string
		ObjectCount int
		EventCount  int
	}{
		Version:     p.Version(),
		Package:     pkg,
		ObjectCount: len(p.Objects()),
		EventCount:  len(p.Events()),
	}
	var buf bytes.Buffer
	if err := registryTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render registry: %w", err)
	}
	return formatGo(RegistryFileName, buf.Bytes())
}

func formatGo(name string, src []byte) ([]byte, error) {
	formatted, err := format.Source(src)
	if err != nil {
		goSourceLog.Printf("gofmt failed for %s: %v\n%s", name, err, src)
		return nil, fmt.Errorf("generated code for %s does not parse: %w", name, err)
	}
	return formatted, nil
}

// goValidatorExpr returns the Go expression building the validator of f.
// Eager references name the target's package-level variable, so Go
// initializes the target first; deferred references go through the registry
// by name and add no initialization dependency.
func goValidatorExpr(p *Plan, f FieldPlan) (string, error) {
	a := f.Attribute
	var expr string
	switch {
	case a.IsUnmapped():
		expr = "validator.Unmapped()"
	case a.Kind == corpus.KindObject:
		if f.Strategy == Deferred {
			expr = fmt.Sprintf("registry.Lazy(%q)", f.Target.Name)
			break
		}
		target, ok := p.Unit(f.Target.Key())
		if !ok {
			return "", fmt.Errorf("attribute %q references %q, which is not emitted", a.Name, f.Target.Name)
		}
		expr = fmt.Sprintf("validator.Ref(%s)", target.GoName)
	case a.Kind == corpus.KindEnum:
		values := make([]string, len(a.Enum))
		for i, e := range a.Enum {
			values[i] = strconv.FormatInt(e.Value, 10)
		}
		expr = fmt.Sprintf("validator.Enum(%s, %s)", goBaseExpr(a), strings.Join(values, ", "))
	default:
		expr = goBaseExpr(a)
	}
	if a.IsArray {
		expr = "validator.Array(" + expr + ")"
	}
	return expr, nil
}

func goBaseExpr(a corpus.AttributeDefinition) string {
	switch a.BaseType {
	case constants.BaseInteger:
		return "validator.Integer()"
	case constants.BaseLong:
		return "validator.Long()"
	case constants.BaseFloat:
		return "validator.Float()"
	case constants.BaseBoolean:
		return "validator.Boolean()"
	case constants.BaseJSON:
		return "validator.JSON()"
	default:
		return "validator.String()"
	}
}

func goModifiers(u *Unit) string {
	var sb strings.Builder
	if c := u.Entity.Constraints; !c.IsZero() {
		fmt.Fprintf(&sb, ".WithConstraints(%s, %s)", goStrings(c.AtLeastOne), goStrings(c.JustOne))
	}
	if u.IsOpen() {
		sb.WriteString(".Open()")
	}
	return sb.String()
}

func goStrings(values []string) string {
	if len(values) == 0 {
		return "nil"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

func goLabels(labels map[int64]string) string {
	entries := make([]string, 0, len(labels))
	for _, id := range slices.Sorted(maps.Keys(labels)) {
		entries = append(entries, fmt.Sprintf("%d: %s", id, strconv.Quote(labels[id])))
	}
	return "map[int64]string{" + strings.Join(entries, ", ") + "}"
}

// goDoc renders the doc comment of an entity's exported variable.
func goDoc(u *Unit) string {
	var lines []string
	if u.IsEvent() {
		lines = append(lines, fmt.Sprintf("%s validates the OCSF %q event class (class_uid %d).", u.GoName, u.Entity.Name, u.Entity.ClassUID))
	} else {
		lines = append(lines, fmt.Sprintf("%s validates the OCSF %q object.", u.GoName, u.Entity.Name))
	}
	if u.Entity.Description != "" {
		lines = append(lines, "")
		lines = append(lines, wrap(u.Entity.Description, 76)...)
	}
	if u.Strategy == Deferred {
		lines = append(lines, "", "Fields that reference other cyclic objects are resolved on first use.")
	}
	for i, l := range lines {
		if l == "" {
			lines[i] = "//"
			continue
		}
		lines[i] = "// " + l
	}
	return strings.Join(lines, "\n")
}

func wrap(text string, width int) []string {
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
