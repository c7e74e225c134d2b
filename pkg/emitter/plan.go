// Package emitter turns a resolved graph into validators: live ones in
// memory (Build) and source artifacts on disk (Emit) as Go code, JSON Schema
// documents and a manifest.
//
// Every back end works from the same Plan, which fixes the set of emitted
// entities, their Go names, the eager-first emission order and the
// evaluation strategy of every field.
package emitter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/resolver"
	"github.com/githubnext/ocsfc/pkg/stringutil"
)

var planLog = logger.New("emitter:plan")

// Strategy is how a field reference (or an entity's fields) is evaluated.
type Strategy int

const (
	// Eager references point at a validator that is already built.
	Eager Strategy = iota
	// Deferred references are resolved by name on first use.
	Deferred
)

func (s Strategy) String() string {
	if s == Deferred {
		return "deferred"
	}
	return "eager"
}

// FieldPlan is one attribute of an emitted entity.
type FieldPlan struct {
	Attribute corpus.AttributeDefinition
	Strategy  Strategy
	// Target is the referenced object for object attributes that are not free-form.
	Target *resolver.Entity
}

// Unit is one emitted entity.
type Unit struct {
	Entity   *resolver.Entity
	Strategy Strategy
	// GoName is the exported Go identifier of the entity's validator.
	GoName string
	Fields []FieldPlan
}

// IsEvent reports whether u is an event.
func (u *Unit) IsEvent() bool {
	return u.Entity.Type == corpus.EventEntity
}

// IsOpen reports whether u is the free-form object, which accepts any keys.
func (u *Unit) IsOpen() bool {
	return !u.IsEvent() && u.Entity.Name == constants.FreeFormObject
}

// DeferredFields returns the names of the fields evaluated lazily.
func (u *Unit) DeferredFields() []string {
	var names []string
	for _, f := range u.Fields {
		if f.Strategy == Deferred {
			names = append(names, f.Attribute.Name)
		}
	}
	return names
}

// Plan is the emission plan of a graph.
type Plan struct {
	Graph *resolver.Graph
	// Order lists every unit so that eager dependencies precede dependents.
	Order []*Unit
	units map[resolver.NodeKey]*Unit
}

// Version returns the corpus version.
func (p *Plan) Version() string {
	return p.Graph.Version
}

// Unit returns the unit emitted for key.
func (p *Plan) Unit(key resolver.NodeKey) (*Unit, bool) {
	u, ok := p.units[key]
	return u, ok
}

// Objects returns the object units sorted by name.
func (p *Plan) Objects() []*Unit {
	return p.filter(corpus.ObjectEntity)
}

// Events returns the event units sorted by name.
func (p *Plan) Events() []*Unit {
	return p.filter(corpus.EventEntity)
}

func (p *Plan) filter(t corpus.EntityType) []*Unit {
	var out []*Unit
	for _, u := range p.Order {
		if u.Entity.Type == t {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b *Unit) int { return strings.Compare(a.Entity.Name, b.Entity.Name) })
	return out
}

// NewPlan selects the entities to emit and fixes their strategies. Concrete
// objects and events are emitted, and so is every object they reach, abstract
// or not.
func NewPlan(g *resolver.Graph) (*Plan, error) {
	selected := make(map[resolver.NodeKey]bool)
	var reach func(e *resolver.Entity)
	reach = func(e *resolver.Entity) {
		if selected[e.Key()] {
			return
		}
		selected[e.Key()] = true
		for _, ref := range e.References {
			if target, ok := g.Object(ref); ok {
				reach(target)
			}
		}
	}
	for _, e := range g.Entities() {
		if !e.Abstract {
			reach(e)
		}
	}

	p := &Plan{Graph: g, units: make(map[resolver.NodeKey]*Unit, len(selected))}
	names, err := goNames(g, selected)
	if err != nil {
		return nil, err
	}

	for _, e := range g.TopologicalOrder() {
		if !selected[e.Key()] {
			continue
		}
		u := &Unit{Entity: e, GoName: names[e.Key()]}
		if e.InCycle {
			u.Strategy = Deferred
		}
		for _, name := range e.AttributeNames() {
			attr := e.Attributes[name]
			f := FieldPlan{Attribute: attr}
			if target, ok := attr.ObjectType(); ok && !attr.IsUnmapped() {
				f.Target, _ = g.Object(target)
				if resolver.DeferredEdge(e, f.Target) {
					f.Strategy = Deferred
				}
			}
			u.Fields = append(u.Fields, f)
		}
		p.Order = append(p.Order, u)
		p.units[e.Key()] = u
	}

	planLog.Printf("Plan ready: units=%d, skipped_abstract=%d", len(p.Order), len(g.Objects())+len(g.Events())-len(p.Order))
	return p, nil
}

// goNames assigns Go identifiers. Objects keep the PascalCase form of their
// name; an event whose name collides with an object gets an Event suffix.
func goNames(g *resolver.Graph, selected map[resolver.NodeKey]bool) (map[resolver.NodeKey]string, error) {
	names := make(map[resolver.NodeKey]string, len(selected))
	owners := make(map[string]resolver.NodeKey, len(selected))
	for _, reserved := range []string{"Registry", "Version"} {
		owners[reserved] = resolver.NodeKey{Name: "generated " + reserved}
	}

	assign := func(e *resolver.Entity, id string) error {
		if prev, taken := owners[id]; taken {
			return fmt.Errorf("go identifier %s is produced by both %s and %s", id, prev, e.Key())
		}
		owners[id] = e.Key()
		names[e.Key()] = id
		return nil
	}

	for _, e := range g.Objects() {
		if selected[e.Key()] {
			if err := assign(e, stringutil.GoIdentifier(e.Name)); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range g.Events() {
		if !selected[e.Key()] {
			continue
		}
		id := stringutil.GoIdentifier(e.Name)
		if _, taken := owners[id]; taken {
			id += "Event"
		}
		if err := assign(e, id); err != nil {
			return nil, err
		}
	}
	return names, nil
}
