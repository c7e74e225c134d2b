// Package resolver turns a loaded corpus into the resolved entity graph the
// emitters work from.
//
// Resolution applies "extends" inheritance (a descendant attribute replaces
// the inherited one as a whole), fixes each event's category and class uid,
// checks that every object reference names an existing object, detects the
// id/label sibling pairs of every final attribute set and classifies each
// entity as cyclic or not by computing the strongly connected components of
// the reference graph.
package resolver

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/normalize"
)

var log = logger.New("resolver:resolver")

// NodeKey identifies an entity in the reference graph. Objects and events
// live in separate namespaces.
type NodeKey struct {
	Type corpus.EntityType
	Name string
}

func (k NodeKey) String() string {
	return k.Type.String() + ":" + k.Name
}

func compareKeys(a, b NodeKey) int {
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// Entity is an object or event after inheritance.
type Entity struct {
	Type        corpus.EntityType
	Name        string
	Caption     string
	Description string
	Extends     string
	// Lineage lists the ancestors from the root down to the direct parent.
	Lineage []string
	// Category is the resolved category name. Events only.
	Category    string
	CategoryUID int64
	// ClassUID is category_uid*1000 + uid. Zero for objects and abstract events.
	ClassUID int64
	Abstract bool
	// Attributes is the final merged attribute set keyed by name.
	Attributes  map[string]corpus.AttributeDefinition
	Constraints corpus.Constraints
	// References lists the distinct object names the attributes refer to, sorted.
	References []string
	Siblings   []normalize.SiblingPair
	// InCycle is set when the entity lies on a reference cycle, a self
	// reference included.
	InCycle       bool
	SelfReference bool
	Includes      []string
	File          string
}

// Key returns the entity's graph key.
func (e *Entity) Key() NodeKey {
	return NodeKey{Type: e.Type, Name: e.Name}
}

// Attribute returns the final attribute called name.
func (e *Entity) Attribute(name string) (corpus.AttributeDefinition, bool) {
	a, ok := e.Attributes[name]
	return a, ok
}

// AttributeNames returns the final attribute names sorted.
func (e *Entity) AttributeNames() []string {
	return slices.Sorted(maps.Keys(e.Attributes))
}

// Graph is the resolved corpus.
type Graph struct {
	Version    string
	Categories map[string]corpus.Category
	objects    map[string]*Entity
	events     map[string]*Entity
	cycles     [][]NodeKey
}

// Object returns the resolved object called name.
func (g *Graph) Object(name string) (*Entity, bool) {
	e, ok := g.objects[name]
	return e, ok
}

// Event returns the resolved event called name.
func (g *Graph) Event(name string) (*Entity, bool) {
	e, ok := g.events[name]
	return e, ok
}

// Lookup returns the entity with key k.
func (g *Graph) Lookup(k NodeKey) (*Entity, bool) {
	if k.Type == corpus.EventEntity {
		return g.Event(k.Name)
	}
	return g.Object(k.Name)
}

// Objects returns every object sorted by name.
func (g *Graph) Objects() []*Entity {
	return sortedEntities(g.objects)
}

// Events returns every event sorted by name.
func (g *Graph) Events() []*Entity {
	return sortedEntities(g.events)
}

// Entities returns every object followed by every event.
func (g *Graph) Entities() []*Entity {
	return append(g.Objects(), g.Events()...)
}

// Cycles returns the reference cycles: every strongly connected component
// with more than one member, and every self-referencing entity on its own.
// Members are sorted and cycles are ordered by their first member.
func (g *Graph) Cycles() [][]NodeKey {
	out := make([][]NodeKey, len(g.cycles))
	for i, c := range g.cycles {
		out[i] = slices.Clone(c)
	}
	return out
}

func sortedEntities(m map[string]*Entity) []*Entity {
	out := make([]*Entity, 0, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[name])
	}
	return out
}

// Resolve builds the graph for c. Every resolution error found is reported;
// the graph is nil whenever the error is non-nil.
func Resolve(c *corpus.Corpus) (*Graph, error) {
	log.Printf("Resolving corpus: objects=%d, events=%d", len(c.Objects), len(c.Events))

	r := &resolution{
		corpus:    c,
		collector: corpus.NewErrorCollector(false),
		graph: &Graph{
			Version:    c.Version,
			Categories: c.Categories,
			objects:    make(map[string]*Entity, len(c.Objects)),
			events:     make(map[string]*Entity, len(c.Events)),
		},
	}

	r.inherit(corpus.ObjectEntity, c.Objects, r.graph.objects)
	r.inherit(corpus.EventEntity, c.Events, r.graph.events)
	for _, e := range r.graph.Events() {
		r.classify(e)
	}
	for _, e := range r.graph.Entities() {
		r.checkReferences(e)
		e.Siblings = corpus.DetectSiblingPairs(e.Attributes)
	}
	if r.collector.HasErrors() {
		log.Printf("Resolution failed with %d errors", r.collector.Count())
		return nil, r.collector.Error()
	}

	r.detectCycles()
	log.Printf("Resolved graph: objects=%d, events=%d, cycles=%d",
		len(r.graph.objects), len(r.graph.events), len(r.graph.cycles))
	return r.graph, nil
}

type resolution struct {
	corpus    *corpus.Corpus
	collector *corpus.ErrorCollector
	graph     *Graph
}

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
	stateFailed
)

// inherit resolves every entity of one namespace parent-first. Entities on
// an extends cycle are reported once per cycle and left out of the graph.
func (r *resolution) inherit(t corpus.EntityType, src map[string]*corpus.Entity, dst map[string]*Entity) {
	states := make(map[string]visitState, len(src))
	var stack []string

	var visit func(name string) bool
	visit = func(name string) bool {
		switch states[name] {
		case stateVisiting:
			start := slices.Index(stack, name)
			chain := append(slices.Clone(stack[start:]), name)
			for _, member := range stack[start:] {
				states[member] = stateFailed
			}
			_ = r.collector.Add(&ExtendsCycleError{Type: t, Chain: chain})
			return false
		case stateDone:
			return true
		case stateFailed:
			return false
		}

		raw := src[name]
		states[name] = stateVisiting
		stack = append(stack, name)
		defer func() { stack = stack[:len(stack)-1] }()

		var parent *Entity
		if raw.Extends != "" {
			if _, ok := src[raw.Extends]; !ok {
				_ = r.collector.Add(&corpus.Error{
					File:   raw.File,
					Entity: name,
					Err:    fmt.Errorf("%w %q", ErrMissingParent, raw.Extends),
				})
			} else if !visit(raw.Extends) {
				states[name] = stateFailed
				return false
			} else {
				parent = dst[raw.Extends]
			}
		}

		dst[name] = overlay(t, raw, parent)
		states[name] = stateDone
		return true
	}

	for _, name := range slices.Sorted(maps.Keys(src)) {
		visit(name)
	}
}

// overlay applies raw on top of its resolved parent. A descendant attribute
// replaces the inherited attribute of the same name entirely. The category is
// the declared one, else the parent's, else the events subdirectory.
func overlay(t corpus.EntityType, raw *corpus.Entity, parent *Entity) *Entity {
	e := &Entity{
		Type:        t,
		Name:        raw.Name,
		Caption:     raw.Caption,
		Description: raw.Description,
		Extends:     raw.Extends,
		Category:    raw.Category,
		Abstract:    raw.Abstract(),
		Attributes:  make(map[string]corpus.AttributeDefinition),
		Constraints: raw.Constraints,
		Includes:    slices.Clone(raw.Includes),
		File:        raw.File,
	}
	if parent != nil {
		e.Lineage = append(slices.Clone(parent.Lineage), parent.Name)
		maps.Copy(e.Attributes, parent.Attributes)
		if e.Category == "" {
			e.Category = parent.Category
		}
		if e.Constraints.IsZero() {
			e.Constraints = parent.Constraints
		}
		if e.Caption == "" {
			e.Caption = parent.Caption
		}
	}
	maps.Copy(e.Attributes, raw.Attributes)
	if e.Category == "" {
		e.Category = raw.DirCategory
	}

	if t == corpus.EventEntity && !raw.Abstract() {
		e.ClassUID = raw.UID
	}
	return e
}

// classify fixes an event's category uid and class uid and narrows its
// classification attributes to the values the class can carry.
func (r *resolution) classify(e *Entity) {
	if e.Category == "" {
		e.Category = constants.UncategorizedCategory
	}
	category, ok := r.graph.Categories[e.Category]
	switch {
	case ok:
		e.CategoryUID = category.UID
	case e.Category == constants.UncategorizedCategory:
		category = corpus.Category{Name: e.Category, Caption: "Uncategorized", UID: constants.UncategorizedCategoryUID}
		e.CategoryUID = category.UID
	default:
		_ = r.collector.Add(&corpus.Error{File: e.File, Entity: e.Name, Err: fmt.Errorf("%w %q", ErrUnknownCategory, e.Category)})
		return
	}

	if e.Abstract {
		e.ClassUID = 0
		return
	}
	localUID := e.ClassUID
	e.ClassUID = e.CategoryUID*constants.ClassUIDMultiplier + localUID
	log.Printf("Classified event %q: category=%s(%d), class_uid=%d", e.Name, e.Category, e.CategoryUID, e.ClassUID)

	narrow(e, constants.CategoryUIDField, []corpus.EnumValue{{Value: e.CategoryUID, Caption: category.Caption}})
	narrow(e, constants.ClassUIDField, []corpus.EnumValue{{Value: e.ClassUID, Caption: e.Caption}})

	activity, ok := e.Attributes[constants.ActivityIDField]
	if !ok || len(activity.Enum) == 0 {
		return
	}
	types := make([]corpus.EnumValue, 0, len(activity.Enum))
	for _, a := range activity.Enum {
		types = append(types, corpus.EnumValue{
			Value:   e.ClassUID*constants.TypeUIDMultiplier + a.Value,
			Caption: e.Caption + ": " + a.Caption,
		})
	}
	narrow(e, constants.TypeUIDField, types)
}

// narrow replaces the enum table of a declared integer attribute.
func narrow(e *Entity, name string, values []corpus.EnumValue) {
	a, ok := e.Attributes[name]
	if !ok || a.Kind == corpus.KindObject {
		return
	}
	a.Enum = values
	a.Kind = corpus.KindEnum
	e.Attributes[name] = a
}

func (r *resolution) checkReferences(e *Entity) {
	refs := make(map[string]struct{})
	for _, name := range e.AttributeNames() {
		target, ok := e.Attributes[name].ObjectType()
		if !ok {
			continue
		}
		if _, exists := r.graph.objects[target]; !exists {
			_ = r.collector.Add(&corpus.Error{
				File:      e.File,
				Entity:    e.Name,
				Attribute: name,
				Err:       fmt.Errorf("%w %q", ErrUnknownType, target),
			})
			continue
		}
		refs[target] = struct{}{}
	}
	e.References = slices.Sorted(maps.Keys(refs))
}

// detectCycles marks every entity on a reference cycle. Objects and events
// share one graph; edges run from an entity to the objects it references.
func (r *resolution) detectCycles() {
	g := r.graph
	var nodes []NodeKey
	for _, e := range g.Entities() {
		nodes = append(nodes, e.Key())
	}
	next := func(k NodeKey) []NodeKey {
		e, _ := g.Lookup(k)
		out := make([]NodeKey, len(e.References))
		for i, ref := range e.References {
			out[i] = NodeKey{Type: corpus.ObjectEntity, Name: ref}
		}
		return out
	}

	for _, e := range g.objects {
		e.SelfReference = slices.Contains(e.References, e.Name)
	}
	for _, component := range stronglyConnected(nodes, next) {
		if len(component) == 1 {
			e, _ := g.Lookup(component[0])
			if !e.SelfReference {
				continue
			}
		}
		slices.SortFunc(component, compareKeys)
		for _, k := range component {
			e, _ := g.Lookup(k)
			e.InCycle = true
		}
		g.cycles = append(g.cycles, component)
	}
	slices.SortFunc(g.cycles, func(a, b []NodeKey) int { return compareKeys(a[0], b[0]) })
}
