package schema

import "sort"

// Path is an ordered walk through table nodes: len(Nodes) == len(Edges)+1.
// Paths returned by the search functions are simple (no repeated node).
type Path struct {
	Nodes []string
	Edges []*Edge
}

// Length is the number of edges in the path.
func (p *Path) Length() int { return len(p.Edges) }

// ShortestPath runs a breadth-first search between two table nodes.
// Column nodes never participate in traversal. Ties between equal-length
// paths resolve by edge declaration order (first discovered wins), which
// is documented behavior, not a semantic guarantee. Returns nil when
// either endpoint is unknown or no path exists.
func (g *Graph) ShortestPath(from, to string) *Path {
	if g.Table(from) == nil || g.Table(to) == nil {
		return nil
	}
	if from == to {
		return &Path{Nodes: []string{from}}
	}

	visited := map[string]hop{from: {}}
	queue := []string{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, idx := range g.adj[cur] {
			next := g.edges[idx].Other(cur)
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = hop{prev: cur, edge: idx}
			if next == to {
				return g.reconstruct(from, to, visited)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func (g *Graph) reconstruct(from, to string, visited map[string]hop) *Path {
	var nodes []string
	var edges []*Edge
	for cur := to; cur != from; {
		h := visited[cur]
		nodes = append(nodes, cur)
		edges = append(edges, g.edges[h.edge])
		cur = h.prev
	}
	nodes = append(nodes, from)

	// Reverse into from→to order.
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return &Path{Nodes: nodes, Edges: edges}
}

// hop records how BFS reached a node: the predecessor table and the index
// of the edge taken.
type hop struct {
	prev string
	edge int
}

// AllPaths enumerates every simple path between two tables with length
// ≤ maxDepth, using depth-first search. Results are ordered ascending by
// length; equal lengths keep discovery order. Returns an empty slice when
// no path exists within the bound.
func (g *Graph) AllPaths(from, to string, maxDepth int) []*Path {
	if g.Table(from) == nil || g.Table(to) == nil || maxDepth <= 0 {
		return []*Path{}
	}

	paths := []*Path{}
	onPath := map[string]bool{from: true}
	nodeStack := []string{from}
	var edgeStack []*Edge

	var walk func(cur string)
	walk = func(cur string) {
		if cur == to {
			p := &Path{
				Nodes: append([]string(nil), nodeStack...),
				Edges: append([]*Edge(nil), edgeStack...),
			}
			paths = append(paths, p)
			return
		}
		if len(edgeStack) >= maxDepth {
			return
		}
		for _, idx := range g.adj[cur] {
			e := g.edges[idx]
			next := e.Other(cur)
			if onPath[next] {
				continue
			}
			onPath[next] = true
			nodeStack = append(nodeStack, next)
			edgeStack = append(edgeStack, e)

			walk(next)

			onPath[next] = false
			nodeStack = nodeStack[:len(nodeStack)-1]
			edgeStack = edgeStack[:len(edgeStack)-1]
		}
	}
	walk(from)

	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Length() < paths[j].Length()
	})
	return paths
}
