package network

import (
	"container/list"
	"sort"
)

// WeaklyConnectedComponents returns the weakly connected components of
// the graph. Each component is a sorted slice of node ids; components
// are ordered by size descending, then by their smallest node id, so
// the result is stable for identical inputs.
func (g *Graph) WeaklyConnectedComponents() [][]string {
	visited := make(map[string]bool)
	components := make([][]string, 0)

	for _, start := range g.NodeIDs() {
		if visited[start] {
			continue
		}

		component := make([]string, 0)
		queue := list.New()
		queue.PushBack(start)
		visited[start] = true

		for queue.Len() > 0 {
			id := queue.Remove(queue.Front()).(string)
			component = append(component, id)

			for _, neighbor := range g.Neighbors(id) {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue.PushBack(neighbor)
				}
			}
		}

		sort.Strings(component)
		components = append(components, component)
	}

	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components
}

// DFS colors for cycle detection
const (
	white = 0 // unvisited
	gray  = 1 // currently visiting (in recursion stack)
	black = 2 // finished visiting
)

// HasCycle reports whether the directed graph contains any cycle,
// including self-loops. Stops at the first cycle found.
func (g *Graph) HasCycle() bool {
	color := make(map[string]int)
	for _, id := range g.NodeIDs() {
		if color[id] == white {
			if g.hasCycleDFS(id, color) {
				return true
			}
		}
	}
	return false
}

func (g *Graph) hasCycleDFS(id string, color map[string]int) bool {
	color[id] = gray

	for _, edge := range g.OutEdges(id) {
		if edge.To == id {
			// Self-loop is a cycle
			return true
		}
		if color[edge.To] == white {
			if g.hasCycleDFS(edge.To, color) {
				return true
			}
		} else if color[edge.To] == gray {
			// Back edge found - cycle!
			return true
		}
	}

	color[id] = black
	return false
}

// Cycles enumerates directed cycles found by one DFS sweep using
// three-color marking. Each cycle is a node sequence in forward edge
// order; a self-loop is a single-element cycle. One sweep does not
// necessarily find every simple cycle in the graph, so callers that
// must eliminate all cycles re-run until HasCycle reports false.
func (g *Graph) Cycles() [][]string {
	color := make(map[string]int)
	parent := make(map[string]string)
	cycles := make([][]string, 0)

	for _, id := range g.NodeIDs() {
		if color[id] == white {
			g.cycleDFS(id, color, parent, &cycles)
		}
	}
	return cycles
}

func (g *Graph) cycleDFS(id string, color map[string]int, parent map[string]string, cycles *[][]string) {
	color[id] = gray

	for _, edge := range g.OutEdges(id) {
		next := edge.To

		if next == id {
			*cycles = append(*cycles, []string{id})
			continue
		}

		if color[next] == white {
			parent[next] = id
			g.cycleDFS(next, color, parent, cycles)
		} else if color[next] == gray {
			// Back edge id -> next closes a cycle through the gray chain
			*cycles = append(*cycles, extractCycle(next, id, parent))
		}
	}

	color[id] = black
}

// extractCycle reconstructs the cycle closed by the back edge end ->
// start, returning nodes in forward edge order: start, ..., end.
func extractCycle(start, end string, parent map[string]string) []string {
	chain := []string{end}
	current := end
	for current != start {
		p, ok := parent[current]
		if !ok {
			break
		}
		chain = append(chain, p)
		current = p
	}

	// chain is end..start; reverse to start..end
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// BFSUndirected walks the undirected view of the graph from start,
// calling visit with each traversal edge (parent, child) in
// deterministic order. Nodes already present in visited are skipped;
// the map is updated in place so callers can span multiple roots.
func (g *Graph) BFSUndirected(start string, visited map[string]bool, visit func(parent, child string)) {
	if !g.HasNode(start) || visited[start] {
		return
	}

	queue := list.New()
	queue.PushBack(start)
	visited[start] = true

	for queue.Len() > 0 {
		id := queue.Remove(queue.Front()).(string)
		for _, neighbor := range g.Neighbors(id) {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			visit(id, neighbor)
			queue.PushBack(neighbor)
		}
	}
}
