package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/githubnext/ocsfc/pkg/corpus"
)

// MermaidOptions configures Mermaid rendering.
type MermaidOptions struct {
	// CyclicOnly limits the diagram to entities on a reference cycle.
	CyclicOnly bool
	// IncludeEvents adds event nodes and their edges.
	IncludeEvents bool
}

// Mermaid renders the reference graph as a Mermaid flowchart. Edges are
// labelled with the referencing attribute names; edges between two cyclic
// entities are drawn dotted because they are emitted as deferred references.
func (g *Graph) Mermaid(opts MermaidOptions) string {
	var nodes []*Entity
	for _, e := range g.Entities() {
		if opts.CyclicOnly && !e.InCycle {
			continue
		}
		if e.Type == corpus.EventEntity && !opts.IncludeEvents {
			continue
		}
		nodes = append(nodes, e)
	}
	log.Printf("Generating Mermaid graph: nodes=%d, cyclic_only=%v", len(nodes), opts.CyclicOnly)

	ids := make(map[NodeKey]string, len(nodes))
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("flowchart LR\n")
	for i, e := range nodes {
		id := fmt.Sprintf("n%d", i)
		ids[e.Key()] = id
		label := e.Name
		if e.Type == corpus.EventEntity {
			label = fmt.Sprintf("%s (%d)", e.Name, e.ClassUID)
		}
		shape := "[%q]"
		if e.Type == corpus.EventEntity {
			shape = "([%q])"
		}
		fmt.Fprintf(&sb, "    %s"+shape+"\n", id, label)
	}

	for _, e := range nodes {
		from := ids[e.Key()]
		byTarget := make(map[string][]string)
		for _, name := range e.AttributeNames() {
			if target, ok := e.Attributes[name].ObjectType(); ok {
				byTarget[target] = append(byTarget[target], name)
			}
		}
		for _, target := range e.References {
			targetEntity, _ := g.Object(target)
			to, ok := ids[targetEntity.Key()]
			if !ok {
				continue
			}
			arrow := "-->"
			if e.InCycle && targetEntity.InCycle {
				arrow = "-.->"
			}
			attrs := byTarget[target]
			slices.Sort(attrs)
			fmt.Fprintf(&sb, "    %s %s|%s| %s\n", from, arrow, strings.Join(attrs, ", "), to)
		}
	}

	sb.WriteString("```\n")
	return sb.String()
}
