//go:build !integration

package emitter

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/resolver"
	"github.com/githubnext/ocsfc/pkg/testutil"
	"github.com/githubnext/ocsfc/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixturePlan(t *testing.T) *Plan {
	t.Helper()
	c, err := corpus.Load(testutil.CorpusDir(t))
	require.NoError(t, err, "fixture corpus should load")
	g, err := resolver.Resolve(c)
	require.NoError(t, err, "fixture corpus should resolve")
	p, err := NewPlan(g)
	require.NoError(t, err)
	return p
}

func unitNames(units []*Unit) []string {
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Entity.Name
	}
	return names
}

func objectUnit(t *testing.T, p *Plan, name string) *Unit {
	t.Helper()
	u, ok := p.Unit(resolver.NodeKey{Type: corpus.ObjectEntity, Name: name})
	require.True(t, ok, "object %s should be emitted", name)
	return u
}

func eventUnit(t *testing.T, p *Plan, name string) *Unit {
	t.Helper()
	u, ok := p.Unit(resolver.NodeKey{Type: corpus.EventEntity, Name: name})
	require.True(t, ok, "event %s should be emitted", name)
	return u
}

func fieldPlan(t *testing.T, u *Unit, name string) FieldPlan {
	t.Helper()
	for _, f := range u.Fields {
		if f.Attribute.Name == name {
			return f
		}
	}
	t.Fatalf("%s has no field %s", u.Entity.Name, name)
	return FieldPlan{}
}

func incidentInput() map[string]any {
	return map[string]any{
		"activity_name": "Update",
		"severity":      "High",
		"status":        "In Progress",
		"time":          int64(1700000000000),
		"metadata": map[string]any{
			"version": "1.7.0",
			"product": map[string]any{"name": "Scanner", "vendor_name": "Acme"},
		},
		"finding_info_list": []any{map[string]any{"title": "Suspicious login", "uid": "f-1"}},
		"unmapped":          map[string]any{"vendor": map[string]any{"k": 1}},
	}
}

func TestNewPlan_Selection(t *testing.T) {
	p := fixturePlan(t)

	assert.Equal(t,
		[]string{"feature", "file", "finding_info", "group", "metadata", "object", "process", "product", "user"},
		unitNames(p.Objects()), "abstract objects nobody references are not emitted")
	assert.Equal(t,
		[]string{"base_event", "incident_finding", "process_activity"},
		unitNames(p.Events()), "abstract events are not emitted")
	assert.Equal(t, "1.7.0", p.Version())
}

func TestNewPlan_Strategies(t *testing.T) {
	p := fixturePlan(t)

	tests := []struct {
		entity   string
		strategy Strategy
		deferred []string
	}{
		{entity: "process", strategy: Deferred, deferred: []string{"parent_process", "user"}},
		{entity: "user", strategy: Deferred, deferred: []string{"groups"}},
		{entity: "group", strategy: Deferred, deferred: []string{"members"}},
		{entity: "metadata", strategy: Eager},
		{entity: "file", strategy: Eager},
	}
	for _, tt := range tests {
		t.Run(tt.entity, func(t *testing.T) {
			u := objectUnit(t, p, tt.entity)
			assert.Equal(t, tt.strategy, u.Strategy)
			assert.Equal(t, tt.deferred, u.DeferredFields())
		})
	}

	file := fieldPlan(t, objectUnit(t, p, "process"), "file")
	assert.Equal(t, Eager, file.Strategy, "references out of a cycle stay eager")
	require.NotNil(t, file.Target)
	assert.Equal(t, "file", file.Target.Name)
}

func TestNewPlan_OrderPutsEagerTargetsFirst(t *testing.T) {
	p := fixturePlan(t)

	position := make(map[resolver.NodeKey]int, len(p.Order))
	for i, u := range p.Order {
		position[u.Entity.Key()] = i
	}
	for _, u := range p.Order {
		for _, f := range u.Fields {
			if f.Target == nil || f.Strategy == Deferred {
				continue
			}
			assert.Less(t, position[f.Target.Key()], position[u.Entity.Key()],
				"%s.%s targets %s eagerly", u.Entity.Name, f.Attribute.Name, f.Target.Name)
		}
	}
}

func TestNewPlan_GoNames(t *testing.T) {
	p := fixturePlan(t)
	assert.Equal(t, "FindingInfo", objectUnit(t, p, "finding_info").GoName)
	assert.Equal(t, "IncidentFinding", eventUnit(t, p, "incident_finding").GoName)
	assert.True(t, objectUnit(t, p, "object").IsOpen())
	assert.False(t, objectUnit(t, p, "process").IsOpen())
}

func TestNewPlan_EventNameCollision(t *testing.T) {
	root := testutil.TempDir(t, "corpus-*")
	testutil.WriteFiles(t, root, map[string]string{
		"categories.json":            `{"attributes": {"system": {"caption": "System Activity", "uid": 1}}}`,
		"dictionary.json":            `{"attributes": {"name": {"type": "string_t"}, "process": {"type": "process"}}}`,
		"objects/process.json":       `{"name": "process", "attributes": {"name": {}}}`,
		"events/system/process.json": `{"name": "process", "uid": 7, "category": "system", "attributes": {"process": {"requirement": "required"}}}`,
	})
	c, err := corpus.Load(root)
	require.NoError(t, err)
	g, err := resolver.Resolve(c)
	require.NoError(t, err)

	p, err := NewPlan(g)
	require.NoError(t, err)
	assert.Equal(t, "Process", objectUnit(t, p, "process").GoName)
	assert.Equal(t, "ProcessEvent", eventUnit(t, p, "process").GoName)
}

func TestBuild_IncidentFinding(t *testing.T) {
	reg, err := Build(fixturePlan(t))
	require.NoError(t, err)
	assert.Equal(t, "1.7.0", reg.Version())

	event, ok := reg.Event("incident_finding")
	require.True(t, ok)
	assert.Equal(t, int64(2005), event.ClassUID())
	found, ok := reg.EventByClassUID(2005)
	require.True(t, ok)
	assert.Same(t, event, found)

	out, err := event.Parse(incidentInput())
	require.NoError(t, err)
	assert.Equal(t, int64(2), out["activity_id"])
	assert.Equal(t, int64(4), out["severity_id"])
	assert.Equal(t, int64(2), out["status_id"])
	assert.Equal(t, int64(2), out["category_uid"])
	assert.Equal(t, "Findings", out["category_name"])
	assert.Equal(t, int64(2005), out["class_uid"])
	assert.Equal(t, "Incident Finding", out["class_name"])
	assert.Equal(t, int64(200502), out["type_uid"])
	assert.Equal(t, "Incident Finding: Update", out["type_name"])
}

func TestBuild_IncidentFindingRejects(t *testing.T) {
	reg, err := Build(fixturePlan(t))
	require.NoError(t, err)
	event, ok := reg.Event("incident_finding")
	require.True(t, ok)

	input := incidentInput()
	delete(input, "metadata")
	input["finding_info_list"] = []any{map[string]any{"title": "no uid"}}
	input["surprise"] = true

	result := event.SafeParse(input)
	require.False(t, result.Success)
	paths := make([]string, len(result.Error.Issues))
	for i, issue := range result.Error.Issues {
		paths[i] = issue.Path.String()
	}
	assert.Equal(t, []string{"finding_info_list[0].uid", "metadata", "surprise"}, paths)
}

func TestBuild_ClassificationLabelMismatch(t *testing.T) {
	reg, err := Build(fixturePlan(t))
	require.NoError(t, err)
	event, ok := reg.Event("incident_finding")
	require.True(t, ok)

	input := incidentInput()
	input["class_name"] = "Process Activity"
	result := event.SafeParse(input)
	require.False(t, result.Success, "a class label from another class is rejected")
	require.Len(t, result.Error.Issues, 1)
	assert.Equal(t, validator.CodeNormalization, result.Error.Issues[0].Code)
	assert.Contains(t, result.Error.Issues[0].Message, "class_uid/class_name")
}

func TestBuild_RecursiveProcess(t *testing.T) {
	reg, err := Build(fixturePlan(t))
	require.NoError(t, err)
	event, ok := reg.Event("process_activity")
	require.True(t, ok)

	input := map[string]any{
		"activity_id": 1,
		"severity_id": 1,
		"time":        int64(1700000000000),
		"metadata": map[string]any{
			"version": "1.7.0",
			"product": map[string]any{"uid": "p-1"},
		},
		"process": map[string]any{
			"pid": 42,
			"parent_process": map[string]any{
				"pid":            1,
				"parent_process": map[string]any{"uid": "init"},
			},
			"user": map[string]any{
				"name":   "root",
				"groups": []any{map[string]any{"name": "wheel", "members": []any{map[string]any{"name": "admin"}}}},
			},
		},
	}
	out, err := event.Parse(input)
	require.NoError(t, err)
	assert.Equal(t, "Launch", out["activity_name"])
	assert.Equal(t, int64(100701), out["type_uid"])

	input["process"].(map[string]any)["parent_process"].(map[string]any)["parent_process"] = map[string]any{"cmd_line": 7}
	_, err = event.Parse(input)
	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	codes := make([]validator.Code, len(verr.Issues))
	for i, issue := range verr.Issues {
		codes[i] = issue.Code
	}
	assert.Contains(t, codes, validator.CodeInvalidType)
	assert.Contains(t, codes, validator.CodeConstraint, "nested parent lacks pid and uid")
}

func TestGoSource(t *testing.T) {
	p := fixturePlan(t)

	process, err := GoSource(p, objectUnit(t, p, "process"), DefaultPackage)
	require.NoError(t, err)
	src := string(process)
	assert.True(t, strings.HasPrefix(src, "// Code generated by ocsfc from OCSF 1.7.0. DO NOT EDIT."))
	assert.Contains(t, src, `registry.Lazy("process")`)
	assert.Contains(t, src, `registry.Lazy("user")`)
	assert.Contains(t, src, "validator.Ref(File)")
	assert.NotContains(t, src, "validator.Ref(Process)", "a self reference is never eager")
	assert.Contains(t, src, `.WithConstraints([]string{"pid", "uid"}, nil)`)

	incident, err := GoSource(p, eventUnit(t, p, "incident_finding"), DefaultPackage)
	require.NoError(t, err)
	src = string(incident)
	assert.Contains(t, src, "registry.RegisterEvent(validator.NewEvent(incidentFindingSchema")
	assert.Contains(t, src, "ClassUID:    2005")
	assert.Contains(t, src, `200502: "Incident Finding: Update"`)
	assert.Contains(t, src, "validator.Array(validator.Ref(FindingInfo))")

	object, err := GoSource(p, objectUnit(t, p, "object"), DefaultPackage)
	require.NoError(t, err)
	assert.Contains(t, string(object), ".Open()")

	registry, err := GoRegistry(p, "schema")
	require.NoError(t, err)
	assert.Contains(t, string(registry), "package schema")
	assert.Contains(t, string(registry), `const Version = "1.7.0"`)

	fset := token.NewFileSet()
	for _, u := range p.Order {
		src, err := GoSource(p, u, DefaultPackage)
		require.NoError(t, err, u.Entity.Name)
		_, err = parser.ParseFile(fset, goFileName(u), src, parser.AllErrors)
		assert.NoError(t, err, "%s should parse", u.Entity.Name)
	}
}

// TestGoSource_TypeChecks type-checks the whole generated package against the
// validator runtime, which also rejects initialization cycles between eager
// references.
func TestGoSource_TypeChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("type-checking from source is slow")
	}
	p := fixturePlan(t)
	wd, err := os.Getwd()
	require.NoError(t, err)

	fset := token.NewFileSet()
	var files []*ast.File
	parse := func(name string, src []byte) {
		f, err := parser.ParseFile(fset, filepath.Join(wd, name), src, parser.AllErrors)
		require.NoError(t, err, "%s should parse", name)
		files = append(files, f)
	}
	registry, err := GoRegistry(p, DefaultPackage)
	require.NoError(t, err)
	parse(RegistryFileName, registry)
	for _, u := range p.Order {
		src, err := GoSource(p, u, DefaultPackage)
		require.NoError(t, err, u.Entity.Name)
		parse(goFileName(u), src)
	}

	var typeErrs []string
	conf := types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error:    func(err error) { typeErrs = append(typeErrs, err.Error()) },
	}
	pkg, _ := conf.Check(DefaultPackage, fset, files, nil)
	require.Empty(t, typeErrs, "generated package should type-check")

	for _, name := range []string{"Process", "FindingInfo", "IncidentFinding", "ProcessActivity", "Registry", "Version"} {
		assert.NotNil(t, pkg.Scope().Lookup(name), "generated package should declare %s", name)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []Format
		wantErr bool
	}{
		{name: "default", want: []Format{FormatGo, FormatJSONSchema}},
		{name: "single", input: []string{"go"}, want: []Format{FormatGo}},
		{name: "case and duplicates", input: []string{"JSONSchema", " jsonschema"}, want: []Format{FormatJSONSchema}},
		{name: "unknown", input: []string{"zod"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormats(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmit(t *testing.T) {
	p := fixturePlan(t)
	out := testutil.TempDir(t, "emit-*")

	result, err := Emit(context.Background(), p, Options{OutDir: out, Workers: 3, Verify: true})
	require.NoError(t, err)

	// one Go file and one JSON Schema per unit, plus registry.go and the manifest
	assert.Len(t, result.Artifacts, 2*len(p.Order)+2)
	for _, rel := range []string{
		"go/registry.go",
		"go/process_gen.go",
		"go/event_incident_finding_gen.go",
		"jsonschema/objects/process.schema.json",
		"jsonschema/events/incident_finding.schema.json",
		ManifestFileName,
	} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(rel)))
	}
	_, err = os.Stat(filepath.Join(out, "go", "entity_gen.go"))
	assert.True(t, os.IsNotExist(err), "abstract _entity is not emitted")

	data, err := os.ReadFile(filepath.Join(out, ManifestFileName))
	require.NoError(t, err)
	manifest, err := ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, result.Manifest, manifest)
	assert.Equal(t, "1.7.0", manifest.Version)
	assert.Len(t, manifest.Objects, 9)
	assert.Len(t, manifest.Events, 3)
	assert.Equal(t, [][]string{{"group", "user"}, {"process"}}, manifest.Cycles)

	var process ManifestEntry
	for _, e := range manifest.Objects {
		if e.Name == "process" {
			process = e
		}
	}
	assert.Equal(t, "deferred", process.Strategy)
	assert.Equal(t, []string{"parent_process", "user"}, process.DeferredFields)
	assert.Equal(t, []string{"go/process_gen.go", "jsonschema/objects/process.schema.json"}, process.Files)

	for _, e := range manifest.Events {
		if e.Name == "incident_finding" {
			assert.Equal(t, int64(2005), e.ClassUID)
			assert.Equal(t, "findings", e.Category)
		}
	}
}

func TestEmit_PrunesStaleOutput(t *testing.T) {
	p := fixturePlan(t)
	out := testutil.TempDir(t, "emit-*")
	stray := filepath.Join(out, "notes.txt")
	require.NoError(t, os.WriteFile(stray, []byte("kept"), 0o644))

	_, err := Emit(context.Background(), p, Options{OutDir: out})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "jsonschema", "objects", "process.schema.json"))

	_, err = Emit(context.Background(), p, Options{OutDir: out, Formats: []Format{FormatGo}})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, "jsonschema", "objects", "process.schema.json"), "files of a dropped format are removed")
	assert.FileExists(t, filepath.Join(out, "go", "process_gen.go"))
	assert.FileExists(t, stray, "files the manifest never listed are left alone")
}

func TestEmit_SingleFormatWithoutOutput(t *testing.T) {
	p := fixturePlan(t)

	result, err := Emit(context.Background(), p, Options{Formats: []Format{FormatJSONSchema}})
	require.NoError(t, err)
	for _, a := range result.Artifacts {
		assert.False(t, strings.HasPrefix(a.Path, "go/"), a.Path)
	}
	assert.Len(t, result.Artifacts, len(p.Order)+1)
}

func TestEmit_RelativeOutDir(t *testing.T) {
	_, err := Emit(context.Background(), fixturePlan(t), Options{OutDir: "gen", Formats: []Format{FormatGo}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path must be absolute")
	assert.NoDirExists(t, "gen")
}

func TestEmit_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Emit(ctx, fixturePlan(t), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONSchema_CrossCheck(t *testing.T) {
	p := fixturePlan(t)
	result, err := Emit(context.Background(), p, Options{Formats: []Format{FormatJSONSchema}})
	require.NoError(t, err)

	set, err := CompileJSONSchemas(result.Artifacts)
	require.NoError(t, err)
	assert.Equal(t, len(p.Order), set.Len())

	reg, err := Build(p)
	require.NoError(t, err)
	event, ok := reg.Event("incident_finding")
	require.True(t, ok)
	record, err := event.Parse(incidentInput())
	require.NoError(t, err)

	url := SchemaURL(DefaultSchemaBaseURL, eventUnit(t, p, "incident_finding"))
	assert.NoError(t, set.Validate(url, record), "records accepted by the Go validator pass the JSON Schema")

	record["surprise"] = "!"
	assert.Error(t, set.Validate(url, record), "events reject unknown keys")

	delete(record, "surprise")
	record["message"] = nil
	assert.NoError(t, set.Validate(url, record), "null members count as absent")

	assert.Error(t, set.Validate("https://example.com/missing.json", record))
}

func TestJSONSchema_Properties(t *testing.T) {
	p := fixturePlan(t)

	doc, err := JSONSchema(p, eventUnit(t, p, "incident_finding"), "https://example.com/schemas")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/schemas/events/incident_finding.schema.json", doc.ID)
	assert.Contains(t, doc.Required, "finding_info_list")
	assert.Contains(t, doc.Required, "type_uid")
	assert.NotNil(t, doc.AdditionalProperties)

	list := doc.Properties["finding_info_list"]
	require.NotNil(t, list)
	assert.Equal(t, "array", list.Type)
	require.NotNil(t, list.Items)
	assert.Equal(t, "https://example.com/schemas/objects/finding_info.schema.json", list.Items.Ref)

	assert.True(t, doc.Properties["original_time"].Deprecated)
	assert.Len(t, doc.Properties["status_id"].Enum, 7)

	object, err := JSONSchema(p, objectUnit(t, p, "object"), DefaultSchemaBaseURL)
	require.NoError(t, err)
	assert.Nil(t, object.AdditionalProperties, "the free-form object stays open")

	product, err := JSONSchema(p, objectUnit(t, p, "product"), DefaultSchemaBaseURL)
	require.NoError(t, err)
	assert.Len(t, product.AnyOf, 2)
}
