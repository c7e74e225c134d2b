// Package corpus loads an OCSF schema corpus from disk: the attribute
// dictionary, the category table and every object and event descriptor.
//
// Each descriptor attribute is merged against the dictionary entry of the same
// name (local keys win), classified as primitive, enum or object reference,
// and stored on the entity. Inheritance is not applied here; see pkg/resolver.
//
// Profile inclusion ("$include") is recorded on the entity and otherwise
// skipped: profile-derived attributes never enter the merged set.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/fileutil"
	"github.com/githubnext/ocsfc/pkg/logger"
	"golang.org/x/mod/semver"
)

var loaderLog = logger.New("corpus:loader")

// Corpus is the fully materialized, read-only result of a load.
type Corpus struct {
	Root       string
	Version    string
	Dictionary *Dictionary
	Categories map[string]Category
	Objects    map[string]*Entity
	Events     map[string]*Entity
}

// Entity returns the object or event named name.
func (c *Corpus) Entity(t EntityType, name string) (*Entity, bool) {
	if t == EventEntity {
		e, ok := c.Events[name]
		return e, ok
	}
	e, ok := c.Objects[name]
	return e, ok
}

// LoadOptions configures a corpus load.
type LoadOptions struct {
	// FailFast stops at the first corpus error instead of reporting all of them.
	FailFast bool
}

// Load reads the corpus rooted at root with default options.
func Load(root string) (*Corpus, error) {
	return LoadWithOptions(root, LoadOptions{})
}

// LoadWithOptions reads the corpus rooted at root. Every corpus error found is
// reported; the returned corpus is nil whenever the error is non-nil.
func LoadWithOptions(root string, opts LoadOptions) (*Corpus, error) {
	loaderLog.Printf("Loading corpus: root=%s, fail_fast=%v", root, opts.FailFast)

	if !fileutil.DirExists(root) {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}

	l := &loader{
		root:      root,
		collector: NewErrorCollector(opts.FailFast),
		corpus: &Corpus{
			Root:    root,
			Objects: make(map[string]*Entity),
			Events:  make(map[string]*Entity),
		},
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	if l.collector.HasErrors() {
		loaderLog.Printf("Corpus load failed with %d errors", l.collector.Count())
		return nil, l.collector.Error()
	}

	loaderLog.Printf("Corpus loaded: version=%s, objects=%d, events=%d, categories=%d",
		l.corpus.Version, len(l.corpus.Objects), len(l.corpus.Events), len(l.corpus.Categories))
	return l.corpus, nil
}

type loader struct {
	root      string
	collector *ErrorCollector
	corpus    *Corpus
}

// load runs every stage. A non-nil return is fatal (I/O failure or fail-fast);
// corpus errors otherwise accumulate in the collector.
func (l *loader) load() error {
	if err := l.loadVersion(); err != nil {
		return err
	}
	dict, err := l.loadDictionary()
	if err != nil {
		return err
	}
	l.corpus.Dictionary = dict

	if err := l.loadCategories(); err != nil {
		return err
	}
	if err := l.loadObjects(); err != nil {
		return err
	}
	return l.loadEvents()
}

func (l *loader) readJSON(rel string, v any) error {
	data, err := os.ReadFile(filepath.Join(l.root, rel))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &Error{File: rel, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}

func (l *loader) loadVersion() error {
	var doc struct {
		Version string `json:"version"`
	}
	err := l.readJSON(constants.VersionFile, &doc)
	if errors.Is(err, fs.ErrNotExist) {
		loaderLog.Print("No version.json, corpus version unknown")
		return nil
	}
	if err != nil {
		return l.collector.Add(err)
	}
	if !semver.IsValid("v" + strings.TrimPrefix(doc.Version, "v")) {
		return l.collector.Add(&Error{File: constants.VersionFile, Err: fmt.Errorf("%w: %q", ErrInvalidVersion, doc.Version)})
	}
	l.corpus.Version = strings.TrimPrefix(doc.Version, "v")
	return nil
}

func (l *loader) loadDictionary() (*Dictionary, error) {
	var doc struct {
		Attributes map[string]PartialAttributeDefinition `json:"attributes"`
		Types      struct {
			Attributes map[string]TypeDefinition `json:"attributes"`
		} `json:"types"`
	}
	if err := l.readJSON(constants.DictionaryFile, &doc); err != nil {
		return nil, fmt.Errorf("failed to load dictionary: %w", err)
	}
	return NewDictionary(doc.Attributes, doc.Types.Attributes), nil
}

func (l *loader) loadCategories() error {
	var doc struct {
		Attributes map[string]Category `json:"attributes"`
	}
	err := l.readJSON(constants.CategoriesFile, &doc)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	l.corpus.Categories = make(map[string]Category, len(doc.Attributes))
	for name, c := range doc.Attributes {
		c.Name = name
		c.Description = NormalizeDescription(c.Description)
		l.corpus.Categories[name] = c
	}
	return nil
}

func (l *loader) loadObjects() error {
	dir := filepath.Join(l.root, constants.ObjectsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read objects directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		rel := filepath.Join(constants.ObjectsDir, entry.Name())
		if err := l.loadEntity(ObjectEntity, rel, ""); err != nil {
			return err
		}
	}
	return nil
}

// loadEvents walks events/: the base event sits at the top level and every
// subdirectory is a category holding one descriptor per class.
func (l *loader) loadEvents() error {
	dir := filepath.Join(l.root, constants.EventsDir)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read events directory: %w", err)
	}
	slices.Sort(files)

	for _, path := range files {
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		category := ""
		if parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) > 2 {
			category = parts[1]
		}
		if err := l.loadEntity(EventEntity, rel, category); err != nil {
			return err
		}
	}
	return nil
}

// descriptor is the JSON shape shared by object and event files.
type descriptor struct {
	Name        string                     `json:"name"`
	Caption     string                     `json:"caption"`
	Description string                     `json:"description"`
	Extends     string                     `json:"extends"`
	Category    string                     `json:"category"`
	UID         *int64                     `json:"uid"`
	Attributes  map[string]json.RawMessage `json:"attributes"`
	Constraints Constraints                `json:"constraints"`
}

func (l *loader) loadEntity(t EntityType, rel, dirCategory string) error {
	var desc descriptor
	if err := l.readJSON(rel, &desc); err != nil {
		return l.collector.Add(err)
	}
	if desc.Name == "" {
		return l.collector.Add(&Error{File: rel, Err: ErrMissingName})
	}

	entity := &Entity{
		Type:        t,
		Name:        desc.Name,
		Caption:     desc.Caption,
		Description: NormalizeDescription(desc.Description),
		Extends:     desc.Extends,
		Category:    desc.Category,
		DirCategory: dirCategory,
		Constraints: desc.Constraints,
		Attributes:  make(map[string]AttributeDefinition, len(desc.Attributes)),
		File:        rel,
	}
	if desc.UID != nil {
		entity.UID = *desc.UID
		entity.HasUID = true
	}

	names := make([]string, 0, len(desc.Attributes))
	for name := range desc.Attributes {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		raw := desc.Attributes[name]
		if name == constants.IncludeDirective {
			entity.Includes = append(entity.Includes, decodeIncludes(raw)...)
			loaderLog.Printf("Skipping profile inclusion in %s: %v", rel, entity.Includes)
			continue
		}
		var override PartialAttributeDefinition
		if err := json.Unmarshal(raw, &override); err != nil {
			if err := l.collector.Add(&Error{File: rel, Entity: desc.Name, Attribute: name, Err: err}); err != nil {
				return err
			}
			continue
		}
		attr, err := l.corpus.Dictionary.resolve(name, override)
		if err != nil {
			if err := l.collector.Add(&Error{File: rel, Entity: desc.Name, Attribute: name, Err: err}); err != nil {
				return err
			}
			continue
		}
		entity.Attributes[name] = attr
	}

	target := l.corpus.Objects
	if t == EventEntity {
		target = l.corpus.Events
	}
	if existing, ok := target[entity.Name]; ok {
		return l.collector.Add(&Error{
			File:   rel,
			Entity: entity.Name,
			Err:    fmt.Errorf("%w: also declared in %s", ErrDuplicateEntity, existing.File),
		})
	}
	target[entity.Name] = entity
	loaderLog.Printf("Loaded %s %q from %s: attributes=%d", t, entity.Name, rel, len(entity.Attributes))
	return nil
}

// decodeIncludes accepts both a single path and a list of paths.
func decodeIncludes(raw json.RawMessage) []string {
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}
