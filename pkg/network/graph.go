// Package network provides the directed graph model for distribution
// networks: poles and transformers as nodes, conductor segments as
// edges. Every iteration order exposed by the graph is a total order so
// that downstream repair and analysis stay deterministic.
package network

import (
	"sort"
)

// Edge kind tags carried over from survey data
const (
	KindBackbone     = "backbone"
	KindDistribution = "distribution"
	KindDropline     = "dropline"
	KindService      = "service"
)

// Voltage class tags for conductor segments
const (
	VoltageMV = "mv"
	VoltageLV = "lv"
)

// Position holds the surveyed location of a node. UTM coordinates take
// priority over lat/lng for distance computation when both are present.
type Position struct {
	UTMX      float64 `json:"utmX,omitempty"`
	UTMY      float64 `json:"utmY,omitempty"`
	HasUTM    bool    `json:"-"`
	Lat       float64 `json:"lat,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
	HasLatLng bool    `json:"-"`
}

// Located reports whether the position carries any usable coordinates
func (p Position) Located() bool {
	return p.HasUTM || p.HasLatLng
}

// Node is a pole or transformer location in the network
type Node struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Position       Position `json:"position"`
	IsTransformer  bool     `json:"isTransformer,omitempty"`
	TransformerKVA float64  `json:"transformerKva,omitempty"`
	Status         string   `json:"status,omitempty"`
	Customers      int      `json:"customers,omitempty"`

	seq int // insertion order, used as the last-resort source tie-break
}

// Edge is a conductor segment between two nodes, oriented upstream to
// downstream once topology repair has run.
type Edge struct {
	From          string  `json:"fromId"`
	To            string  `json:"toId"`
	LengthM       float64 `json:"lengthMeters"`
	SpecID        string  `json:"conductorSpecId,omitempty"`
	Kind          string  `json:"typeTag,omitempty"`
	Voltage       string  `json:"voltage,omitempty"`
	AutoGenerated bool    `json:"autoGenerated,omitempty"`
}

// Graph is a mutable directed graph with at most one edge per ordered
// node pair. Each analysis run owns its graph exclusively; Graph is not
// safe for concurrent mutation.
type Graph struct {
	nodes map[string]*Node
	out   map[string]map[string]*Edge
	in    map[string]map[string]*Edge
	seq   int
	edges int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string]map[string]*Edge),
		in:    make(map[string]map[string]*Edge),
	}
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return g.edges
}

// HasNode reports whether a node with the given id exists
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// AddNode inserts a node. If a node with the same id already exists the
// existing node is kept and false is returned; importers decide whether
// a duplicate is an error.
func (g *Graph) AddNode(n Node) bool {
	if _, exists := g.nodes[n.ID]; exists {
		return false
	}
	n.seq = g.seq
	g.seq++
	stored := n
	g.nodes[n.ID] = &stored
	g.out[n.ID] = make(map[string]*Edge)
	g.in[n.ID] = make(map[string]*Edge)
	return true
}

// RemoveNode deletes a node and all incident edges. Removing an absent
// node is a no-op returning false.
func (g *Graph) RemoveNode(id string) bool {
	if _, exists := g.nodes[id]; !exists {
		return false
	}
	for to := range g.out[id] {
		delete(g.in[to], id)
		g.edges--
	}
	for from := range g.in[id] {
		delete(g.out[from], id)
		g.edges--
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
	return true
}

// AddEdge inserts a directed edge, auto-creating missing endpoint nodes
// as placeholders. An existing edge for the same ordered pair is
// replaced. Self-referencing edges are stored as-is; topology repair
// drops them.
func (g *Graph) AddEdge(e Edge) {
	if !g.HasNode(e.From) {
		g.AddNode(Node{ID: e.From})
	}
	if !g.HasNode(e.To) {
		g.AddNode(Node{ID: e.To})
	}
	if _, exists := g.out[e.From][e.To]; !exists {
		g.edges++
	}
	stored := e
	g.out[e.From][e.To] = &stored
	g.in[e.To][e.From] = &stored
}

// Edge returns the edge from -> to
func (g *Graph) Edge(from, to string) (*Edge, bool) {
	m, ok := g.out[from]
	if !ok {
		return nil, false
	}
	e, ok := m[to]
	return e, ok
}

// HasEdge reports whether the directed edge from -> to exists
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.Edge(from, to)
	return ok
}

// RemoveEdge deletes the directed edge from -> to. Removing an absent
// edge is a no-op returning false.
func (g *Graph) RemoveEdge(from, to string) bool {
	m, ok := g.out[from]
	if !ok {
		return false
	}
	if _, ok := m[to]; !ok {
		return false
	}
	delete(m, to)
	delete(g.in[to], from)
	g.edges--
	return true
}

// ReverseEdge flips the direction of the stored edge from -> to while
// preserving all conductor attributes. Returns false if the edge does
// not exist or the reversed edge already exists.
func (g *Graph) ReverseEdge(from, to string) bool {
	e, ok := g.Edge(from, to)
	if !ok {
		return false
	}
	if g.HasEdge(to, from) {
		return false
	}
	reversed := *e
	reversed.From, reversed.To = e.To, e.From
	g.RemoveEdge(from, to)
	g.AddEdge(reversed)
	return true
}

// OutEdges returns the outgoing edges of a node, ordered by target id
func (g *Graph) OutEdges(id string) []*Edge {
	m := g.out[id]
	targets := make([]string, 0, len(m))
	for to := range m {
		targets = append(targets, to)
	}
	sort.Strings(targets)
	edges := make([]*Edge, len(targets))
	for i, to := range targets {
		edges[i] = m[to]
	}
	return edges
}

// InEdges returns the incoming edges of a node, ordered by origin id
func (g *Graph) InEdges(id string) []*Edge {
	m := g.in[id]
	origins := make([]string, 0, len(m))
	for from := range m {
		origins = append(origins, from)
	}
	sort.Strings(origins)
	edges := make([]*Edge, len(origins))
	for i, from := range origins {
		edges[i] = m[from]
	}
	return edges
}

// Neighbors returns the undirected neighbors of a node in sorted order
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]bool)
	for to := range g.out[id] {
		seen[to] = true
	}
	for from := range g.in[id] {
		seen[from] = true
	}
	delete(seen, id)
	neighbors := make([]string, 0, len(seen))
	for n := range seen {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)
	return neighbors
}

// OutDegree returns the number of outgoing edges
func (g *Graph) OutDegree(id string) int {
	return len(g.out[id])
}

// InDegree returns the number of incoming edges
func (g *Graph) InDegree(id string) int {
	return len(g.in[id])
}

// Degree returns the total number of incident edges
func (g *Graph) Degree(id string) int {
	return len(g.out[id]) + len(g.in[id])
}

// NodeIDs returns all node ids in sorted order
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeIDsByInsertion returns node ids in the order they were added
func (g *Graph) NodeIDsByInsertion() []string {
	ids := g.NodeIDs()
	sort.Slice(ids, func(i, j int) bool {
		return g.nodes[ids[i]].seq < g.nodes[ids[j]].seq
	})
	return ids
}

// Edges returns all edges ordered by (from, to)
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, g.edges)
	for _, from := range g.NodeIDs() {
		edges = append(edges, g.OutEdges(from)...)
	}
	return edges
}

// Nodes returns all nodes ordered by id
func (g *Graph) Nodes() []*Node {
	ids := g.NodeIDs()
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Clone returns a deep copy of the graph, preserving insertion order
func (g *Graph) Clone() *Graph {
	clone := NewGraph()
	for _, id := range g.NodeIDsByInsertion() {
		clone.AddNode(*g.nodes[id])
	}
	for _, e := range g.Edges() {
		clone.AddEdge(*e)
	}
	return clone
}
