// Package repair converts an arbitrary imported network graph into a
// single radial form: acyclic, weakly connected, oriented from source
// to load with one feed per node, and orphaned nodes pruned. Every
// fix is counted in an audit report; nothing is dropped silently.
package repair

import (
	"fmt"
	"sort"
	"strings"

	"github.com/osenergy/gridmend/pkg/catalog"
	"github.com/osenergy/gridmend/pkg/logging"
	"github.com/osenergy/gridmend/pkg/network"
)

// Config controls repair behavior
type Config struct {
	// DefaultSpecID is assigned to synthetic stitching edges
	DefaultSpecID string `yaml:"default_spec_id"`
	// MaxCyclePasses bounds the detect-and-cut loop; each pass removes
	// at least one edge per remaining cycle, so the bound is never hit
	// on sane data.
	MaxCyclePasses int `yaml:"max_cycle_passes"`
}

// DefaultConfig returns the standard repair configuration
func DefaultConfig() Config {
	return Config{
		DefaultSpecID:  "AAC_35",
		MaxCyclePasses: 1000,
	}
}

// SyntheticEdge records one auto-generated stitching conductor
type SyntheticEdge struct {
	From    string  `json:"fromId"`
	To      string  `json:"toId"`
	LengthM float64 `json:"lengthMeters"`
}

// FixReport counts every repair applied, by category
type FixReport struct {
	CyclesRemoved        int             `json:"cyclesRemoved"`
	SelfLoopsDropped     int             `json:"selfLoopsDropped"`
	ComponentsMerged     int             `json:"componentsMerged"`
	EdgesReversed        int             `json:"edgesReversed"`
	ParallelFeedsRemoved int             `json:"parallelFeedsRemoved"`
	OrphansRemoved       int             `json:"orphansRemoved"`
	SyntheticEdges       []SyntheticEdge `json:"syntheticEdges,omitempty"`
	UnresolvedComponents [][]string      `json:"unresolvedComponents,omitempty"`
	Topology             TopologyFlags   `json:"topology"`
}

// TotalFixes returns the number of individual fixes applied
func (r *FixReport) TotalFixes() int {
	return r.CyclesRemoved + r.SelfLoopsDropped + r.ComponentsMerged +
		r.EdgesReversed + r.ParallelFeedsRemoved + r.OrphansRemoved
}

// TopologyFlags describes the graph after repair
type TopologyFlags struct {
	Acyclic        bool `json:"acyclic"`
	Connected      bool `json:"connected"`
	ComponentCount int  `json:"componentCount"`
}

// Repairer fixes network topology in five ordered phases
type Repairer struct {
	cfg Config
	cat *catalog.Catalog
	log logging.Logger
}

// New creates a repairer backed by the given conductor catalog
func New(cat *catalog.Catalog, cfg Config) *Repairer {
	return &Repairer{
		cfg: cfg,
		cat: cat,
		log: logging.With(logging.Component("repair")),
	}
}

// Repair mutates g in place: removes cycles, stitches disconnected
// components onto the main one, orients edges away from the sources,
// cuts surplus feeds so every reached node has exactly one upstream
// conductor, and prunes orphaned nodes. sourceIDs lists the known
// power-injection nodes; it may be empty, in which case the largest
// component is treated as main and edge orientation is left as
// imported.
func (r *Repairer) Repair(g *network.Graph, sourceIDs []string) *FixReport {
	report := &FixReport{}

	r.removeCycles(g, report)
	r.connectComponents(g, sourceIDs, report)
	discovery := r.fixDirections(g, sourceIDs, report)
	r.enforceRadial(g, discovery, report)
	r.pruneOrphans(g, report)

	components := g.WeaklyConnectedComponents()
	report.Topology = TopologyFlags{
		Acyclic:        !g.HasCycle(),
		Connected:      len(components) <= 1,
		ComponentCount: len(components),
	}

	r.log.Info("topology repair complete",
		logging.Int("cycles_removed", report.CyclesRemoved),
		logging.Int("self_loops_dropped", report.SelfLoopsDropped),
		logging.Int("components_merged", report.ComponentsMerged),
		logging.Int("edges_reversed", report.EdgesReversed),
		logging.Int("parallel_feeds_removed", report.ParallelFeedsRemoved),
		logging.Int("orphans_removed", report.OrphansRemoved),
		logging.Bool("acyclic", report.Topology.Acyclic),
		logging.Bool("connected", report.Topology.Connected))
	return report
}

// removeCycles cuts the least important edge out of every cycle until
// the directed graph is acyclic. Self-loops are dropped outright.
func (r *Repairer) removeCycles(g *network.Graph, report *FixReport) {
	for pass := 0; pass < r.cfg.MaxCyclePasses; pass++ {
		cycles := g.Cycles()
		if len(cycles) == 0 {
			return
		}

		for _, cycle := range cycles {
			if len(cycle) == 1 {
				if g.RemoveEdge(cycle[0], cycle[0]) {
					report.SelfLoopsDropped++
					r.log.Debug("dropped self-loop", logging.PoleID(cycle[0]))
				}
				continue
			}

			edge := r.leastImportantEdge(g, cycle)
			if edge == nil {
				// A prior removal in this pass already broke the cycle
				continue
			}
			g.RemoveEdge(edge.From, edge.To)
			report.CyclesRemoved++
			r.log.Debug("removed edge to break cycle", logging.ConductorID(edge.From, edge.To))
		}
	}
}

// leastImportantEdge returns the lowest-importance edge still present
// along the cycle. Ties break on lexicographic (from, to) so the cut
// is a total order.
func (r *Repairer) leastImportantEdge(g *network.Graph, cycle []string) *network.Edge {
	type scored struct {
		edge       *network.Edge
		importance float64
	}
	candidates := make([]scored, 0, len(cycle))
	for i := range cycle {
		from := cycle[i]
		to := cycle[(i+1)%len(cycle)]
		if edge, ok := g.Edge(from, to); ok {
			candidates = append(candidates, scored{edge, r.edgeImportance(edge)})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].importance != candidates[j].importance {
			return candidates[i].importance < candidates[j].importance
		}
		if candidates[i].edge.From != candidates[j].edge.From {
			return candidates[i].edge.From < candidates[j].edge.From
		}
		return candidates[i].edge.To < candidates[j].edge.To
	})
	return candidates[0].edge
}

// edgeImportance scores how costly it would be to cut an edge. Main
// feeders, long spans and large cross-sections rank higher.
func (r *Repairer) edgeImportance(e *network.Edge) float64 {
	importance := 1.0

	if e.Kind == network.KindBackbone || strings.Contains(strings.ToLower(e.Kind), "main") {
		importance *= 10
	}
	if e.LengthM > 1000 {
		importance *= 2
	}
	if spec, ok := r.cat.Lookup(e.SpecID); ok {
		largest, second := r.cat.LargestCrossSections()
		switch {
		case largest > 0 && spec.CrossSectionMm2 == largest:
			importance *= 3
		case second > 0 && spec.CrossSectionMm2 == second:
			importance *= 2
		}
	}
	return importance
}

// connectComponents stitches every secondary component onto the main
// one through a synthetic edge between the geometrically nearest node
// pair. Components with no geolocated nodes cannot be auto-stitched
// and are reported as unresolved.
func (r *Repairer) connectComponents(g *network.Graph, sourceIDs []string, report *FixReport) {
	components := g.WeaklyConnectedComponents()
	if len(components) <= 1 {
		return
	}

	sources := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		sources[id] = true
	}

	// Main component: the one holding a known source, else the largest.
	// Components arrive size-descending, so index 0 is the largest.
	mainIdx := 0
	for i, comp := range components {
		if containsAny(comp, sources) {
			mainIdx = i
			break
		}
	}
	main := components[mainIdx]

	for i, comp := range components {
		if i == mainIdx {
			continue
		}

		mainNode, compNode, dist, found := nearestPair(g, main, comp)
		if !found {
			report.UnresolvedComponents = append(report.UnresolvedComponents, comp)
			r.log.Warn("component has no geolocated nodes, cannot auto-stitch",
				logging.Int("component_size", len(comp)),
				logging.PoleID(comp[0]))
			continue
		}

		g.AddEdge(network.Edge{
			From:          mainNode,
			To:            compNode,
			LengthM:       dist,
			SpecID:        r.cfg.DefaultSpecID,
			Kind:          network.KindDistribution,
			AutoGenerated: true,
		})
		report.ComponentsMerged++
		report.SyntheticEdges = append(report.SyntheticEdges, SyntheticEdge{
			From: mainNode, To: compNode, LengthM: dist,
		})
		r.log.Debug("stitched component onto main network",
			logging.ConductorID(mainNode, compNode),
			logging.Float64("length_m", dist))
	}
}

// nearestPair finds the closest geolocated node pair across two
// components. Both slices are sorted, so strict < keeps the choice
// deterministic.
func nearestPair(g *network.Graph, main, comp []string) (mainNode, compNode string, dist float64, found bool) {
	best := 0.0
	for _, a := range main {
		na, _ := g.Node(a)
		if na == nil || !na.Position.Located() {
			continue
		}
		for _, b := range comp {
			nb, _ := g.Node(b)
			if nb == nil || !nb.Position.Located() {
				continue
			}
			d, ok := network.Distance(na.Position, nb.Position)
			if !ok {
				continue
			}
			if !found || d < best {
				best = d
				mainNode, compNode = a, b
				found = true
			}
		}
	}
	return mainNode, compNode, best, found
}

// fixDirections orients every edge predecessor -> successor by walking
// the undirected view breadth-first from each source and pointing each
// edge from the earlier-discovered endpoint to the later one. Orienting
// along discovery order (not just tree edges) keeps the result acyclic:
// every edge points forward in one fixed node order. The visited set is
// shared across sources so each edge is claimed by exactly one source
// region and a second repair pass reverses nothing.
func (r *Repairer) fixDirections(g *network.Graph, sourceIDs []string, report *FixReport) map[string]int {
	if len(sourceIDs) == 0 {
		return nil
	}
	ordered := append([]string(nil), sourceIDs...)
	sort.Strings(ordered)

	discovery := make(map[string]int)
	visited := make(map[string]bool)
	next := 0
	for _, src := range ordered {
		if g.HasNode(src) && !visited[src] {
			discovery[src] = next
			next++
		}
		g.BFSUndirected(src, visited, func(parent, child string) {
			discovery[child] = next
			next++
		})
	}

	for _, e := range g.Edges() {
		from, okFrom := discovery[e.From]
		to, okTo := discovery[e.To]
		if !okFrom || !okTo || from <= to {
			continue
		}
		if g.ReverseEdge(e.From, e.To) {
			report.EdgesReversed++
			r.log.Debug("reversed edge direction", logging.ConductorID(e.To, e.From))
		}
	}
	return discovery
}

// enforceRadial cuts surplus incoming edges so every node reached from
// a source is fed by exactly one upstream conductor. It runs after
// fixDirections, when every in-edge of a discovered node originates at
// an earlier-discovered node: whichever single in-edge survives, the
// chain of kept feeds still terminates at a source, so reachability is
// preserved. The most important feed is kept; ties keep the edge with
// the lexicographically first origin. Nodes outside any source region
// are left alone, there is no upstream to pick.
func (r *Repairer) enforceRadial(g *network.Graph, discovery map[string]int, report *FixReport) {
	if len(discovery) == 0 {
		return
	}
	for _, id := range g.NodeIDs() {
		if _, ok := discovery[id]; !ok {
			continue
		}
		in := g.InEdges(id)
		if len(in) <= 1 {
			continue
		}

		keep := in[0]
		best := r.edgeImportance(keep)
		for _, e := range in[1:] {
			if imp := r.edgeImportance(e); imp > best {
				keep, best = e, imp
			}
		}
		for _, e := range in {
			if e == keep {
				continue
			}
			g.RemoveEdge(e.From, e.To)
			report.ParallelFeedsRemoved++
			r.log.Debug("removed surplus feed", logging.ConductorID(e.From, e.To),
				logging.PoleID(id))
		}
	}
}

// pruneOrphans removes zero-degree nodes
func (r *Repairer) pruneOrphans(g *network.Graph, report *FixReport) {
	for _, id := range g.NodeIDs() {
		if g.Degree(id) == 0 {
			g.RemoveNode(id)
			report.OrphansRemoved++
			r.log.Debug("removed orphaned node", logging.PoleID(id))
		}
	}
}

func containsAny(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.DefaultSpecID == "" {
		return fmt.Errorf("repair config: default_spec_id is required")
	}
	if c.MaxCyclePasses <= 0 {
		return fmt.Errorf("repair config: max_cycle_passes must be positive, got %d", c.MaxCyclePasses)
	}
	return nil
}
