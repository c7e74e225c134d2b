package resolver

// stronglyConnected returns the strongly connected components of the graph
// given by nodes and next, using Tarjan's algorithm. Components are returned
// in reverse topological order (a component precedes the components that
// reach it). Node order within the input decides traversal order, so equal
// inputs give equal outputs.
func stronglyConnected[K comparable](nodes []K, next func(K) []K) [][]K {
	var (
		index      = 0
		indices    = make(map[K]int, len(nodes))
		lowlinks   = make(map[K]int, len(nodes))
		onStack    = make(map[K]bool, len(nodes))
		stack      []K
		components [][]K
	)

	var connect func(v K)
	connect = func(v K) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range next(v) {
			if _, seen := indices[w]; !seen {
				connect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}

		if lowlinks[v] != indices[v] {
			return
		}
		var component []K
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		components = append(components, component)
	}

	for _, v := range nodes {
		if _, seen := indices[v]; !seen {
			connect(v)
		}
	}
	return components
}
