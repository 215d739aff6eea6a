package metricgraph

// largestComponent computes connected components of the vertex/edge set and
// keeps only the component with the most edges (ties broken by total edge
// length). Vertices and edges are reindexed compactly, isolated vertices drop
// out.
func largestComponent(vertices []Vertex, edges []Edge) ([]Vertex, []Edge) {
	n := len(vertices)
	incident := make([][]int, n)
	for _, e := range edges {
		incident[e.tail] = append(incident[e.tail], e.id)
		incident[e.head] = append(incident[e.head], e.id)
	}

	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}

	numComponents := 0
	for start := 0; start < n; start++ {
		if comp[start] != -1 || len(incident[start]) == 0 {
			continue
		}
		// iterative dfs, road graphs get deep enough to blow the stack
		stack := []int{start}
		comp[start] = numComponents
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, eid := range incident[v] {
				e := edges[eid]
				next := e.tail
				if next == v {
					next = e.head
				}
				if comp[next] == -1 {
					comp[next] = numComponents
					stack = append(stack, next)
				}
			}
		}
		numComponents++
	}

	if numComponents == 0 {
		return nil, nil
	}

	edgeCount := make([]int, numComponents)
	totalLength := make([]float64, numComponents)
	for _, e := range edges {
		c := comp[e.tail]
		edgeCount[c]++
		totalLength[c] += e.length
	}

	best := 0
	for c := 1; c < numComponents; c++ {
		if edgeCount[c] > edgeCount[best] ||
			(edgeCount[c] == edgeCount[best] && totalLength[c] > totalLength[best]) {
			best = c
		}
	}

	oldToNew := make([]int, n)
	for i := range oldToNew {
		oldToNew[i] = -1
	}
	var keptVertices []Vertex
	for i, v := range vertices {
		if comp[i] == best && len(incident[i]) > 0 {
			oldToNew[i] = len(keptVertices)
			v.id = len(keptVertices)
			keptVertices = append(keptVertices, v)
		}
	}

	var keptEdges []Edge
	for _, e := range edges {
		if comp[e.tail] != best {
			continue
		}
		e.id = len(keptEdges)
		e.tail = oldToNew[e.tail]
		e.head = oldToNew[e.head]
		keptEdges = append(keptEdges, e)
	}

	return keptVertices, keptEdges
}
