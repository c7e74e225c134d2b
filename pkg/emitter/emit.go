package emitter

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/githubnext/ocsfc/pkg/fileutil"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/stringutil"
)

var emitLog = logger.New("emitter:emit")

// Format is an output back end.
type Format string

const (
	FormatGo         Format = "go"
	FormatJSONSchema Format = "jsonschema"
)

// ParseFormats parses a list of format names. An empty list selects every format.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return []Format{FormatGo, FormatJSONSchema}, nil
	}
	var formats []Format
	for _, name := range names {
		f := Format(strings.ToLower(strings.TrimSpace(name)))
		switch f {
		case FormatGo, FormatJSONSchema:
			if !slices.Contains(formats, f) {
				formats = append(formats, f)
			}
		default:
			return nil, fmt.Errorf("unknown output format %q (valid formats: %s, %s)", name, FormatGo, FormatJSONSchema)
		}
	}
	return formats, nil
}

// Options configures Emit.
type Options struct {
	// OutDir is the absolute output root. When empty nothing is written.
	OutDir  string
	Formats []Format
	// Package is the Go package name of generated code.
	Package string
	// SchemaBaseURL prefixes the $id of every JSON Schema document.
	SchemaBaseURL string
	// Workers bounds the number of entities rendered concurrently.
	Workers int
	// Verify compiles every emitted JSON Schema document before writing.
	Verify bool
}

func (o Options) withDefaults() Options {
	if len(o.Formats) == 0 {
		o.Formats = []Format{FormatGo, FormatJSONSchema}
	}
	if o.Package == "" {
		o.Package = DefaultPackage
	}
	if o.SchemaBaseURL == "" {
		o.SchemaBaseURL = DefaultSchemaBaseURL
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

func (o Options) has(f Format) bool {
	return slices.Contains(o.Formats, f)
}

// Artifact is one generated file.
type Artifact struct {
	// Unit is the rendered unit, nil for shared files.
	Unit   *Unit
	Format Format
	// Path is relative to the output root, slash separated.
	Path string
	// URL is the $id of JSON Schema documents.
	URL  string
	Data []byte
}

// Result is the outcome of Emit.
type Result struct {
	Artifacts []Artifact
	Manifest  *Manifest
	Duration  time.Duration
}

// Emit renders every unit of p in the requested formats. Units are rendered
// concurrently on a bounded pool; the manifest is built once every unit has
// finished, and files are written only when every unit succeeded.
func Emit(ctx context.Context, p *Plan, opts Options) (*Result, error) {
	start := time.Now()
	opts = opts.withDefaults()
	emitLog.Printf("Emitting: units=%d, formats=%v, workers=%d, out=%s", len(p.Order), opts.Formats, opts.Workers, opts.OutDir)

	rendered := pool.NewWithResults[[]Artifact]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(opts.Workers)
	for _, u := range p.Order {
		rendered.Go(func(ctx context.Context) ([]Artifact, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return renderUnit(p, u, opts)
		})
	}
	perUnit, err := rendered.Wait()
	if err != nil {
		return nil, err
	}

	var artifacts []Artifact
	for _, a := range perUnit {
		artifacts = append(artifacts, a...)
	}
	if opts.has(FormatGo) {
		src, err := GoRegistry(p, opts.Package)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{Format: FormatGo, Path: path.Join(string(FormatGo), RegistryFileName), Data: src})
	}
	slices.SortFunc(artifacts, func(a, b Artifact) int { return cmp.Compare(a.Path, b.Path) })

	if opts.Verify && opts.has(FormatJSONSchema) {
		if err := VerifyJSONSchemas(artifacts); err != nil {
			return nil, err
		}
		emitLog.Print("Emitted JSON Schema documents verified")
	}

	manifest := NewManifest(p, artifacts)
	data, err := manifest.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	artifacts = append(artifacts, Artifact{Path: ManifestFileName, Data: data})

	if opts.OutDir != "" {
		outDir, err := fileutil.ValidateAbsolutePath(opts.OutDir)
		if err != nil {
			return nil, fmt.Errorf("invalid output directory: %w", err)
		}
		previous := readManifest(outDir)
		if err := writeArtifacts(ctx, outDir, artifacts, opts.Workers); err != nil {
			return nil, err
		}
		if err := pruneStale(outDir, previous, artifacts); err != nil {
			return nil, err
		}
	}

	result := &Result{Artifacts: artifacts, Manifest: manifest, Duration: time.Since(start)}
	emitLog.Printf("Emitted %d artifacts in %s", len(artifacts), result.Duration)
	return result, nil
}

func renderUnit(p *Plan, u *Unit, opts Options) ([]Artifact, error) {
	var out []Artifact
	if opts.has(FormatGo) {
		src, err := GoSource(p, u, opts.Package)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{
			Unit:   u,
			Format: FormatGo,
			Path:   path.Join(string(FormatGo), goFileName(u)),
			Data:   src,
		})
	}
	if opts.has(FormatJSONSchema) {
		doc, err := JSONSchema(p, u, opts.SchemaBaseURL)
		if err != nil {
			return nil, err
		}
		data, err := MarshalSchema(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON Schema for %s: %w", u.Entity.Name, err)
		}
		out = append(out, Artifact{
			Unit:   u,
			Format: FormatJSONSchema,
			Path:   path.Join(string(FormatJSONSchema), SchemaPath(u)),
			URL:    SchemaURL(opts.SchemaBaseURL, u),
			Data:   data,
		})
	}
	return out, nil
}

// goFileName keeps object and event files apart when an event shares an
// object's name.
func goFileName(u *Unit) string {
	if u.IsEvent() {
		return "event_" + stringutil.GoFileName(u.Entity.Name)
	}
	return stringutil.GoFileName(u.Entity.Name)
}

func writeArtifacts(ctx context.Context, outDir string, artifacts []Artifact, workers int) error {
	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers)
	for _, a := range artifacts {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fileutil.WriteFileAtomic(filepath.Join(outDir, filepath.FromSlash(a.Path)), a.Data)
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	emitLog.Printf("Wrote %d files under %s", len(artifacts), outDir)
	return nil
}

// readManifest returns the manifest of the previous emission into outDir, or
// nil when there is none or it cannot be read.
func readManifest(outDir string) *Manifest {
	data, err := os.ReadFile(filepath.Join(outDir, ManifestFileName))
	if err != nil {
		return nil
	}
	m, err := ParseManifest(data)
	if err != nil {
		emitLog.Printf("Ignoring unreadable manifest in %s: %v", outDir, err)
		return nil
	}
	return m
}

// pruneStale removes files the previous emission generated that the current
// one no longer produces.
func pruneStale(outDir string, previous *Manifest, artifacts []Artifact) error {
	if previous == nil {
		return nil
	}
	current := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		current[a.Path] = true
	}
	removed := 0
	for _, rel := range previous.Files() {
		if current[rel] || !fs.ValidPath(rel) {
			continue
		}
		path := filepath.Join(outDir, filepath.FromSlash(rel))
		if !fileutil.FileExists(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove stale output %s: %w", rel, err)
		}
		removed++
	}
	if removed > 0 {
		emitLog.Printf("Removed %d stale files under %s", removed, outDir)
	}
	return nil
}
