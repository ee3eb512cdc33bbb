// Package analysis orchestrates one full engine run: record batch to
// graph, pre-repair validation, topology repair, source detection,
// voltage-drop propagation and an optional post-repair validation.
// Each run owns its graph exclusively and returns fresh result
// objects; nothing is shared across runs.
package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osenergy/gridmend/pkg/catalog"
	"github.com/osenergy/gridmend/pkg/logging"
	"github.com/osenergy/gridmend/pkg/metrics"
	"github.com/osenergy/gridmend/pkg/network"
	"github.com/osenergy/gridmend/pkg/repair"
	"github.com/osenergy/gridmend/pkg/source"
	"github.com/osenergy/gridmend/pkg/validation"
	"github.com/osenergy/gridmend/pkg/voltage"
)

// ErrNoSource is returned when no power source could be determined.
// The caller may retry with a manual source hint; the engine never
// substitutes spurious zero-voltage results.
var ErrNoSource = errors.New("no power source could be determined")

// Config assembles per-component configuration for a pipeline
type Config struct {
	Site         string            `yaml:"site"`
	PostValidate bool              `yaml:"post_validate"`
	Repair       repair.Config     `yaml:"repair"`
	Source       source.Config     `yaml:"source"`
	Voltage      voltage.Config    `yaml:"voltage"`
	Validation   validation.Config `yaml:"validation"`
}

// DefaultConfig returns the standard pipeline configuration
func DefaultConfig() Config {
	return Config{
		PostValidate: true,
		Repair:       repair.DefaultConfig(),
		Source:       source.DefaultConfig(),
		Voltage:      voltage.DefaultConfig(),
		Validation:   validation.DefaultConfig(),
	}
}

// Result is the JSON-serializable envelope handed to the API/report
// collaborator. Encode it with Encode to normalize NaN/Inf values.
type Result struct {
	RunID       string              `json:"runId"`
	Site        string              `json:"site,omitempty"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Nodes       []*network.Node     `json:"nodes"`
	Edges       []*network.Edge     `json:"edges"`
	Fixes       *repair.FixReport   `json:"fixes"`
	Sources     []source.Candidate  `json:"sources"`
	Voltage     *voltage.Analysis   `json:"voltage"`
	PreIssues   *validation.Report  `json:"preIssues"`
	PostIssues  *validation.Report  `json:"postIssues,omitempty"`
}

// Pipeline wires the engine components together
type Pipeline struct {
	cfg      Config
	cat      *catalog.Catalog
	repairer *repair.Repairer
	detector *source.Detector
	analyzer *voltage.Analyzer
	checker  *validation.Validator
	metrics  *metrics.Registry
	log      logging.Logger
}

// New builds a pipeline. The metrics registry may be nil when
// instrumentation is not wanted (tests, one-shot CLI runs).
func New(cat *catalog.Catalog, cfg Config, reg *metrics.Registry) (*Pipeline, error) {
	if err := cfg.Repair.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validation.Validate(); err != nil {
		return nil, err
	}
	detector, err := source.New(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("source detector: %w", err)
	}
	analyzer, err := voltage.New(cat, cfg.Voltage)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:      cfg,
		cat:      cat,
		repairer: repair.New(cat, cfg.Repair),
		detector: detector,
		analyzer: analyzer,
		checker:  validation.New(cfg.Validation),
		metrics:  reg,
		log:      logging.With(logging.Component("analysis"), logging.Site(cfg.Site)),
	}, nil
}

// Run executes the full pipeline over one record batch
func (p *Pipeline) Run(nodes []network.NodeRecord, edges []network.EdgeRecord, hints []network.SourceHint) (*Result, error) {
	started := time.Now()
	timer := logging.StartTimer(p.log, "analysis run complete",
		logging.Int("node_records", len(nodes)),
		logging.Int("edge_records", len(edges)))

	result, err := p.run(nodes, edges, hints)
	if err != nil {
		timer.EndError(err)
		p.recordRun("failed", started, nil)
		return nil, err
	}

	timer.End()
	p.recordRun("ok", started, result)
	return result, nil
}

func (p *Pipeline) run(nodes []network.NodeRecord, edges []network.EdgeRecord, hints []network.SourceHint) (*Result, error) {
	preReport := p.checker.CheckRecords(nodes, edges)

	g, err := network.BuildGraph(nodes, edges, hints)
	if err != nil {
		return nil, err
	}

	// Detection runs before repair so named sources steer component
	// stitching and edge orientation.
	candidates := p.detector.Detect(g, hints)
	sourceIDs := make([]string, len(candidates))
	for i, c := range candidates {
		sourceIDs[i] = c.NodeID
	}

	fixes := p.repairer.Repair(g, sourceIDs)

	// Orphan pruning may have removed a detected source
	candidates = retainExisting(g, candidates)

	result := &Result{
		RunID:       uuid.NewString(),
		Site:        p.cfg.Site,
		GeneratedAt: time.Now().UTC(),
		Nodes:       g.Nodes(),
		Edges:       g.Edges(),
		Fixes:       fixes,
		Sources:     candidates,
		PreIssues:   preReport,
	}

	if g.NodeCount() == 0 {
		// Empty input: well-formed empty results, no error
		analysis, aerr := p.analyzer.Analyze(g, "")
		if aerr != nil {
			return nil, aerr
		}
		result.Voltage = analysis
		return result, nil
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("run analysis: %w", ErrNoSource)
	}

	analysis, err := p.analyzer.Analyze(g, candidates[0].NodeID)
	if err != nil {
		return nil, err
	}
	result.Voltage = analysis

	if p.cfg.PostValidate {
		result.PostIssues = p.checker.CheckGraph(g)
	}
	return result, nil
}

func (p *Pipeline) recordRun(status string, started time.Time, result *Result) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordRun(status, time.Since(started))
	if result == nil {
		return
	}
	p.metrics.RecordGraph(len(result.Nodes), len(result.Edges))
	if result.Fixes != nil {
		p.metrics.RecordFixes(
			result.Fixes.CyclesRemoved,
			result.Fixes.SelfLoopsDropped,
			result.Fixes.ComponentsMerged,
			result.Fixes.EdgesReversed,
			result.Fixes.ParallelFeedsRemoved,
			result.Fixes.OrphansRemoved,
		)
	}
	if result.Voltage != nil {
		p.metrics.RecordViolations(result.Voltage.Stats.ViolationCount)
	}
}

func retainExisting(g *network.Graph, candidates []source.Candidate) []source.Candidate {
	out := make([]source.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if g.HasNode(c.NodeID) {
			out = append(out, c)
		}
	}
	return out
}
