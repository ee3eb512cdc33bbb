// Package source locates power-injection nodes in a distribution
// network. Detection runs heuristics in priority order: naming
// patterns, medium-voltage connectivity, subnetwork roots, and a
// last-resort input-order fallback. The first method that produces
// candidates wins; duplicates keep the highest confidence.
package source

import (
	"regexp"
	"sort"
	"strings"

	"github.com/osenergy/gridmend/pkg/logging"
	"github.com/osenergy/gridmend/pkg/network"
)

// Detection methods, in priority order
const (
	MethodManual         = "manual"
	MethodPattern        = "pattern"
	MethodTopology       = "topology"
	MethodSubnetworkRoot = "subnetwork_root"
	MethodFallback       = "fallback"
)

// Candidate is one detected power source
type Candidate struct {
	NodeID      string  `json:"nodeId"`
	Method      string  `json:"method"`
	Confidence  float64 `json:"confidence"`
	VoltageHigh float64 `json:"voltageHigh"`
	CapacityKVA float64 `json:"capacityKva,omitempty"`
}

// Config holds the detector's pattern set
type Config struct {
	// Patterns are regular expressions matched case-insensitively
	// against node ids and names
	Patterns []string `yaml:"patterns"`
}

// DefaultConfig returns the standard transformer/substation indicators
func DefaultConfig() Config {
	return Config{
		Patterns: []string{
			`trans`,
			`tx`,
			`step[-_ ]?up`,
			`step[-_ ]?down`,
			`substation`,
			`gen[-_ ]?site`,
			`power[-_ ]?house`,
			`source`,
			`M1$`,
		},
	}
}

// Detector identifies source nodes
type Detector struct {
	patterns []*regexp.Regexp
	log      logging.Logger
}

// New compiles the configured pattern set. Invalid patterns are
// rejected up front rather than failing during detection.
func New(cfg Config) (*Detector, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}
	return &Detector{
		patterns: patterns,
		log:      logging.With(logging.Component("source")),
	}, nil
}

// Detect returns source candidates ordered by confidence descending,
// then node id. Manual hints outrank every heuristic. An empty graph
// yields an empty slice; the caller decides whether that is fatal.
func (d *Detector) Detect(g *network.Graph, hints []network.SourceHint) []Candidate {
	if len(hints) > 0 {
		return d.fromHints(g, hints)
	}
	if g.NodeCount() == 0 {
		return nil
	}

	for _, detect := range []func(*network.Graph) []Candidate{
		d.byPattern,
		d.byTopology,
		d.bySubnetworkRoot,
	} {
		if candidates := detect(g); len(candidates) > 0 {
			return finalize(candidates)
		}
	}

	// Fallback: first node in input order
	first := g.NodeIDsByInsertion()[0]
	d.log.Warn("no source heuristic matched, falling back to first node",
		logging.PoleID(first))
	return []Candidate{{
		NodeID:      first,
		Method:      MethodFallback,
		Confidence:  0.1,
		VoltageHigh: d.voltageClass(g, first),
	}}
}

func (d *Detector) fromHints(g *network.Graph, hints []network.SourceHint) []Candidate {
	candidates := make([]Candidate, 0, len(hints))
	for _, h := range hints {
		if !g.HasNode(h.NodeID) {
			d.log.Warn("source hint references unknown node, skipping",
				logging.PoleID(h.NodeID))
			continue
		}
		candidates = append(candidates, Candidate{
			NodeID:      h.NodeID,
			Method:      MethodManual,
			Confidence:  1.0,
			VoltageHigh: d.voltageClass(g, h.NodeID),
			CapacityKVA: h.CapacityKVA,
		})
	}
	return finalize(candidates)
}

// byPattern matches node ids and names against the configured
// transformer/substation indicators. Explicitly flagged transformer
// nodes count as pattern matches too.
func (d *Detector) byPattern(g *network.Graph) []Candidate {
	var candidates []Candidate
	for _, id := range g.NodeIDs() {
		node, _ := g.Node(id)
		if node.IsTransformer || d.matches(id) || d.matches(node.Name) {
			candidates = append(candidates, Candidate{
				NodeID:      id,
				Method:      MethodPattern,
				Confidence:  0.8,
				VoltageHigh: d.voltageClass(g, id),
				CapacityKVA: node.TransformerKVA,
			})
			d.log.Debug("pattern-detected source", logging.PoleID(id))
		}
	}
	return candidates
}

// byTopology picks the highest-degree node among those touching
// medium-voltage-tagged edges. True sources have no upstream feed, so
// zero in-degree raises confidence.
func (d *Detector) byTopology(g *network.Graph) []Candidate {
	touchesMV := make(map[string]bool)
	for _, e := range g.Edges() {
		if e.Voltage == network.VoltageMV {
			touchesMV[e.From] = true
			touchesMV[e.To] = true
		}
	}
	if len(touchesMV) == 0 {
		return nil
	}

	ids := make([]string, 0, len(touchesMV))
	for id := range touchesMV {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best := ids[0]
	for _, id := range ids[1:] {
		if g.Degree(id) > g.Degree(best) {
			best = id
		}
	}

	confidence := 0.6
	if g.InDegree(best) == 0 {
		confidence = 0.9
	}
	d.log.Debug("topology-detected source",
		logging.PoleID(best),
		logging.Int("degree", g.Degree(best)),
		logging.Confidence(confidence))
	return []Candidate{{
		NodeID:      best,
		Method:      MethodTopology,
		Confidence:  confidence,
		VoltageHigh: d.voltageClass(g, best),
	}}
}

// bySubnetworkRoot finds, per naming-derived subnetwork, a node with
// outgoing but no incoming edges. Multiple roots prefer pattern
// matches, then the lexicographically first.
func (d *Detector) bySubnetworkRoot(g *network.Graph) []Candidate {
	prefixRe := regexp.MustCompile(`^([A-Za-z]+)_`)

	subnets := make(map[string][]string)
	for _, id := range g.NodeIDs() {
		m := prefixRe.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		subnets[m[1]] = append(subnets[m[1]], id)
	}

	prefixes := make([]string, 0, len(subnets))
	for p := range subnets {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var candidates []Candidate
	for _, prefix := range prefixes {
		members := make(map[string]bool, len(subnets[prefix]))
		for _, id := range subnets[prefix] {
			members[id] = true
		}

		var roots []string
		for _, id := range subnets[prefix] {
			if d.subnetOutDegree(g, id, members) > 0 && d.subnetInDegree(g, id, members) == 0 {
				roots = append(roots, id)
			}
		}
		if len(roots) == 0 {
			continue
		}
		sort.Strings(roots)

		root := roots[0]
		for _, r := range roots {
			if d.matches(r) {
				root = r
				break
			}
		}

		node, _ := g.Node(root)
		candidates = append(candidates, Candidate{
			NodeID:      root,
			Method:      MethodSubnetworkRoot,
			Confidence:  0.7,
			VoltageHigh: d.voltageClass(g, root),
			CapacityKVA: node.TransformerKVA,
		})
		d.log.Debug("subnetwork-root source",
			logging.PoleID(root),
			logging.String("subnetwork", prefix))
	}
	return candidates
}

func (d *Detector) subnetOutDegree(g *network.Graph, id string, members map[string]bool) int {
	n := 0
	for _, e := range g.OutEdges(id) {
		if members[e.To] {
			n++
		}
	}
	return n
}

func (d *Detector) subnetInDegree(g *network.Graph, id string, members map[string]bool) int {
	n := 0
	for _, e := range g.InEdges(id) {
		if members[e.From] {
			n++
		}
	}
	return n
}

func (d *Detector) matches(s string) bool {
	if s == "" {
		return false
	}
	for _, re := range d.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// voltageClass infers the high-side voltage from name markers,
// defaulting to 19kV SWER when nothing is stated.
func (d *Detector) voltageClass(g *network.Graph, id string) float64 {
	node, ok := g.Node(id)
	if !ok {
		return 19000
	}
	name := strings.ToUpper(node.Name + " " + node.ID)
	switch {
	case strings.Contains(name, "33KV"):
		return 33000
	case strings.Contains(name, "11KV"):
		return 11000
	default:
		return 19000
	}
}

// finalize deduplicates by node id keeping the highest confidence,
// then orders by confidence descending and node id ascending.
func finalize(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate)
	for _, c := range candidates {
		if prev, ok := best[c.NodeID]; !ok || c.Confidence > prev.Confidence {
			best[c.NodeID] = c
		}
	}
	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}
