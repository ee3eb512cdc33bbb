// Package voltage propagates current and voltage along a repaired
// radial network. Starting from the source voltage V0, each traversed
// segment drops I * L * (R*cos(phi) + X*sin(phi)), times sqrt(3) on
// three-phase segments. Nodes whose cumulative drop percent exceeds
// the configured threshold are flagged as violations.
package voltage

import (
	"container/list"
	"errors"
	"fmt"
	"math"

	"github.com/osenergy/gridmend/pkg/catalog"
	"github.com/osenergy/gridmend/pkg/logging"
	"github.com/osenergy/gridmend/pkg/network"
)

// ErrSourceNotFound is returned when the requested source node is not
// in the graph. This is fatal: the analyzer never fabricates
// zero-voltage results.
var ErrSourceNotFound = errors.New("source node not found in graph")

// NodeResult holds the computed electrical state of one node
type NodeResult struct {
	NodeID         string   `json:"nodeId"`
	Voltage        float64  `json:"voltage"`
	DropPercent    float64  `json:"dropPercent"`
	CurrentAmps    float64  `json:"currentAmps"`
	WithinLimits   bool     `json:"withinLimits"`
	PathFromSource []string `json:"pathFromSource"`
}

// EdgeResult holds the computed state of one conductor segment
type EdgeResult struct {
	FromID      string  `json:"fromId"`
	ToID        string  `json:"toId"`
	FromVoltage float64 `json:"fromVoltage"`
	ToVoltage   float64 `json:"toVoltage"`
	DropVolts   float64 `json:"dropVolts"`
	DropPercent float64 `json:"dropPercent"`
	CurrentAmps float64 `json:"currentAmps"`
}

// Stats aggregates the analysis
type Stats struct {
	MaxVoltage       float64 `json:"maxVoltage"`
	MinVoltage       float64 `json:"minVoltage"`
	AvgVoltage       float64 `json:"avgVoltage"`
	MaxDropPercent   float64 `json:"maxDropPercent"`
	ViolationCount   int     `json:"violationCount"`
	ReachableNodes   int     `json:"reachableNodes"`
	UnreachableNodes int     `json:"unreachableNodes"`
}

// Analysis is the complete result of one voltage-drop run
type Analysis struct {
	SourceID         string                `json:"sourceId"`
	SourceVoltage    float64               `json:"sourceVoltage"`
	ThresholdPercent float64               `json:"thresholdPercent"`
	Nodes            map[string]NodeResult `json:"nodes"`
	Edges            []EdgeResult          `json:"edges"`
	Violations       []string              `json:"violations"`
	Warnings         []string              `json:"warnings"`
	Stats            Stats                 `json:"stats"`
}

// Analyzer computes voltage drops over a repaired graph
type Analyzer struct {
	cfg Config
	cat *catalog.Catalog
	log logging.Logger
}

// New creates an analyzer. The configuration must validate.
func New(cat *catalog.Catalog, cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("voltage config: %w", err)
	}
	return &Analyzer{
		cfg: cfg,
		cat: cat,
		log: logging.With(logging.Component("voltage")),
	}, nil
}

// Analyze propagates voltage from sourceID across the graph. An empty
// graph yields a well-formed empty analysis; a missing source is a
// fatal ErrSourceNotFound.
func (a *Analyzer) Analyze(g *network.Graph, sourceID string) (*Analysis, error) {
	analysis := &Analysis{
		SourceID:         sourceID,
		SourceVoltage:    a.cfg.SourceVoltage,
		ThresholdPercent: a.cfg.ThresholdPercent,
		Nodes:            make(map[string]NodeResult),
		Edges:            make([]EdgeResult, 0),
		Violations:       make([]string, 0),
		Warnings:         make([]string, 0),
	}

	if g.NodeCount() == 0 {
		return analysis, nil
	}
	if !g.HasNode(sourceID) {
		return nil, fmt.Errorf("analyze voltage: %w: %s", ErrSourceNotFound, sourceID)
	}

	v0 := a.cfg.SourceVoltage
	sinPhi := math.Sqrt(1 - a.cfg.PowerFactor*a.cfg.PowerFactor)

	downstream := a.downstreamCustomers(g, sourceID)
	warnedSpecs := make(map[string]bool)

	analysis.Nodes[sourceID] = NodeResult{
		NodeID:         sourceID,
		Voltage:        v0,
		WithinLimits:   true,
		PathFromSource: []string{sourceID},
	}

	// BFS over the repaired, source->load oriented graph
	queue := list.New()
	queue.PushBack(sourceID)
	for queue.Len() > 0 {
		u := queue.Remove(queue.Front()).(string)
		from := analysis.Nodes[u]

		for _, edge := range g.OutEdges(u) {
			if _, seen := analysis.Nodes[edge.To]; seen {
				// Radial repair guarantees one path per node; a repeat
				// means the caller skipped repair. Keep the first path.
				continue
			}

			spec, ok := a.cat.Lookup(edge.SpecID)
			if !ok {
				if !warnedSpecs[edge.SpecID] {
					warnedSpecs[edge.SpecID] = true
					msg := fmt.Sprintf("unknown conductor spec %q, using default %s", edge.SpecID, a.cfg.DefaultSpecID)
					analysis.Warnings = append(analysis.Warnings, msg)
					a.log.Warn("unknown conductor spec, substituting default",
						logging.SpecID(edge.SpecID),
						logging.String("default", a.cfg.DefaultSpecID))
				}
				spec, ok = a.cat.Lookup(a.cfg.DefaultSpecID)
				if !ok {
					return nil, fmt.Errorf("analyze voltage: default conductor spec %q not in catalog", a.cfg.DefaultSpecID)
				}
			}

			current := a.segmentCurrent(edge, downstream)
			lengthKm := edge.LengthM / 1000.0

			drop := current * lengthKm * (spec.ResistanceOhmPerKm*a.cfg.PowerFactor + spec.ReactanceOhmPerKm*sinPhi)
			if a.threePhase(edge) {
				drop *= math.Sqrt(3)
			}

			voltage := math.Max(0, from.Voltage-drop)
			dropPct := (v0 - voltage) / v0 * 100
			within := dropPct <= a.cfg.ThresholdPercent

			path := make([]string, len(from.PathFromSource)+1)
			copy(path, from.PathFromSource)
			path[len(path)-1] = edge.To

			analysis.Nodes[edge.To] = NodeResult{
				NodeID:         edge.To,
				Voltage:        voltage,
				DropPercent:    dropPct,
				CurrentAmps:    current,
				WithinLimits:   within,
				PathFromSource: path,
			}
			analysis.Edges = append(analysis.Edges, EdgeResult{
				FromID:      edge.From,
				ToID:        edge.To,
				FromVoltage: from.Voltage,
				ToVoltage:   voltage,
				DropVolts:   from.Voltage - voltage,
				DropPercent: (from.Voltage - voltage) / v0 * 100,
				CurrentAmps: current,
			})
			if !within {
				analysis.Violations = append(analysis.Violations, edge.To)
			}
			if current > spec.CurrentRatingAmps {
				analysis.Warnings = append(analysis.Warnings, fmt.Sprintf(
					"conductor %s->%s overloaded: %.1fA exceeds %.0fA rating",
					edge.From, edge.To, current, spec.CurrentRatingAmps))
			}

			queue.PushBack(edge.To)
		}
	}

	a.fillStats(g, analysis)
	a.log.Info("voltage analysis complete",
		logging.PoleID(sourceID),
		logging.Int("reachable", analysis.Stats.ReachableNodes),
		logging.Int("violations", analysis.Stats.ViolationCount),
		logging.Float64("max_drop_percent", analysis.Stats.MaxDropPercent))
	return analysis, nil
}

// segmentCurrent derives the current on an edge according to the
// configured model.
func (a *Analyzer) segmentCurrent(edge *network.Edge, downstream map[string]int) float64 {
	switch a.cfg.CurrentModel {
	case CurrentAccumulated:
		loadKW := float64(downstream[edge.To]) * a.cfg.LoadPerCustomerKW
		if loadKW == 0 {
			return 0
		}
		denom := a.cfg.SourceVoltage * a.cfg.PowerFactor
		if a.threePhase(edge) {
			denom *= math.Sqrt(3)
		}
		return loadKW * 1000 / denom
	default:
		return a.cfg.FlatCurrentAmps
	}
}

// threePhase reports whether the sqrt(3) factor applies to a segment
func (a *Analyzer) threePhase(edge *network.Edge) bool {
	switch edge.Voltage {
	case network.VoltageMV:
		return true
	case network.VoltageLV:
		return false
	default:
		return a.cfg.DefaultThreePhase
	}
}

// downstreamCustomers counts, per node, the customers served at or
// below it. Computed by depth-first post-order from the source; only
// needed by the accumulated current model but cheap enough to always
// build.
func (a *Analyzer) downstreamCustomers(g *network.Graph, sourceID string) map[string]int {
	memo := make(map[string]int)
	visiting := make(map[string]bool)

	var walk func(id string) int
	walk = func(id string) int {
		if n, ok := memo[id]; ok {
			return n
		}
		if visiting[id] {
			// Cycle guard; repaired graphs never trigger this
			return 0
		}
		visiting[id] = true
		total := 0
		if node, ok := g.Node(id); ok {
			total = node.Customers
		}
		for _, edge := range g.OutEdges(id) {
			total += walk(edge.To)
		}
		visiting[id] = false
		memo[id] = total
		return total
	}
	walk(sourceID)
	return memo
}

func (a *Analyzer) fillStats(g *network.Graph, analysis *Analysis) {
	s := &analysis.Stats
	s.ReachableNodes = len(analysis.Nodes)
	s.UnreachableNodes = g.NodeCount() - s.ReachableNodes
	s.ViolationCount = len(analysis.Violations)

	if s.ReachableNodes == 0 {
		return
	}
	first := true
	sum := 0.0
	for _, nr := range analysis.Nodes {
		if first {
			s.MaxVoltage = nr.Voltage
			s.MinVoltage = nr.Voltage
			first = false
		}
		s.MaxVoltage = math.Max(s.MaxVoltage, nr.Voltage)
		s.MinVoltage = math.Min(s.MinVoltage, nr.Voltage)
		s.MaxDropPercent = math.Max(s.MaxDropPercent, nr.DropPercent)
		sum += nr.Voltage
	}
	s.AvgVoltage = sum / float64(s.ReachableNodes)

	if s.UnreachableNodes > 0 {
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf(
			"%d node(s) not reachable from source %s", s.UnreachableNodes, analysis.SourceID))
	}
}
