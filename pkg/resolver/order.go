package resolver

// DeferredEdge reports whether a reference from owner to target has to be
// evaluated lazily: both ends lie on a reference cycle. Every edge of a cycle
// satisfies this, so the remaining eager edges form an acyclic graph.
func DeferredEdge(owner, target *Entity) bool {
	return owner.InCycle && target.InCycle
}

// TopologicalOrder returns every entity ordered so that the target of each
// eager reference precedes the entity holding it. Ties are broken by name,
// objects before events.
func (g *Graph) TopologicalOrder() []*Entity {
	done := make(map[NodeKey]bool, len(g.objects)+len(g.events))
	order := make([]*Entity, 0, len(g.objects)+len(g.events))

	var visit func(e *Entity)
	visit = func(e *Entity) {
		if done[e.Key()] {
			return
		}
		done[e.Key()] = true
		for _, ref := range e.References {
			target, ok := g.Object(ref)
			if !ok || DeferredEdge(e, target) {
				continue
			}
			visit(target)
		}
		order = append(order, e)
	}

	for _, e := range g.Entities() {
		visit(e)
	}
	return order
}
