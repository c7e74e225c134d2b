package emitter

import (
	"github.com/goccy/go-yaml"

	"github.com/githubnext/ocsfc/pkg/constants"
)

// ManifestFileName is the manifest written at the output root.
const ManifestFileName = "manifest.yaml"

var manifestMarshalOptions = []yaml.EncodeOption{
	yaml.Indent(2),
	yaml.IndentSequence(true),
}

// Manifest describes one emission: every unit, its strategy and its files.
type Manifest struct {
	Version   string          `yaml:"version"`
	Generator string          `yaml:"generator"`
	Objects   []ManifestEntry `yaml:"objects,omitempty"`
	Events    []ManifestEntry `yaml:"events,omitempty"`
	Cycles    [][]string      `yaml:"cycles,omitempty"`
}

// ManifestEntry is one emitted entity.
type ManifestEntry struct {
	Name           string   `yaml:"name"`
	Caption        string   `yaml:"caption,omitempty"`
	GoName         string   `yaml:"go_name"`
	Strategy       string   `yaml:"strategy"`
	Category       string   `yaml:"category,omitempty"`
	ClassUID       int64    `yaml:"class_uid,omitempty"`
	DeferredFields []string `yaml:"deferred_fields,omitempty"`
	Files          []string `yaml:"files,omitempty"`
}

// NewManifest describes p and the artifacts rendered from it.
func NewManifest(p *Plan, artifacts []Artifact) *Manifest {
	files := make(map[*Unit][]string)
	for _, a := range artifacts {
		if a.Unit != nil {
			files[a.Unit] = append(files[a.Unit], a.Path)
		}
	}

	m := &Manifest{Version: p.Version(), Generator: constants.CLIName}
	for _, u := range p.Objects() {
		m.Objects = append(m.Objects, manifestEntry(u, files[u]))
	}
	for _, u := range p.Events() {
		entry := manifestEntry(u, files[u])
		entry.Category = u.Entity.Category
		entry.ClassUID = u.Entity.ClassUID
		m.Events = append(m.Events, entry)
	}
	for _, cycle := range p.Graph.Cycles() {
		names := make([]string, len(cycle))
		for i, k := range cycle {
			names[i] = k.Name
		}
		m.Cycles = append(m.Cycles, names)
	}
	return m
}

func manifestEntry(u *Unit, files []string) ManifestEntry {
	return ManifestEntry{
		Name:           u.Entity.Name,
		Caption:        u.Entity.Caption,
		GoName:         u.GoName,
		Strategy:       u.Strategy.String(),
		DeferredFields: u.DeferredFields(),
		Files:          files,
	}
}

// Files returns every generated file the manifest lists, relative to the
// output root.
func (m *Manifest) Files() []string {
	var files []string
	for _, entries := range [][]ManifestEntry{m.Objects, m.Events} {
		for _, e := range entries {
			files = append(files, e.Files...)
		}
	}
	return files
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.MarshalWithOptions(m, manifestMarshalOptions...)
}

// ParseManifest decodes a manifest written by Emit.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
