// Package validation runs stateless structural and data-quality checks
// over network records and graphs, before or after topology repair.
// Findings never mutate the data; disconnection is reported here and
// fixed only by the repairer.
package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/osenergy/gridmend/pkg/logging"
	"github.com/osenergy/gridmend/pkg/network"
)

// Bounds is a plausible lat/lng bounding box for surveyed coordinates.
// The zero value disables the check.
type Bounds struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLng float64 `yaml:"min_lng"`
	MaxLng float64 `yaml:"max_lng"`
}

func (b Bounds) enabled() bool {
	return b != Bounds{}
}

func (b Bounds) contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Config controls the validator's tolerances
type Config struct {
	// Bounds constrains node coordinates when non-zero
	Bounds Bounds `yaml:"bounds"`
	// LengthTolerance is the allowed relative deviation between a
	// conductor's declared length and the geometric distance of its
	// endpoints
	LengthTolerance float64 `yaml:"length_tolerance"`
}

// DefaultConfig returns the standard tolerances (20% length deviation,
// bounding box disabled).
func DefaultConfig() Config {
	return Config{LengthTolerance: 0.20}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.LengthTolerance < 0 {
		return fmt.Errorf("validation config: length_tolerance must be non-negative, got %v", c.LengthTolerance)
	}
	if c.Bounds.enabled() && (c.Bounds.MinLat >= c.Bounds.MaxLat || c.Bounds.MinLng >= c.Bounds.MaxLng) {
		return fmt.Errorf("validation config: bounds are inverted")
	}
	return nil
}

// Validator runs data-quality checks
type Validator struct {
	cfg Config
	log logging.Logger
}

// New creates a validator
func New(cfg Config) *Validator {
	return &Validator{
		cfg: cfg,
		log: logging.With(logging.Component("validation")),
	}
}

// CheckRecords validates a raw record batch before graph construction:
// duplicate node ids and edges referencing ids absent from the batch.
func (v *Validator) CheckRecords(nodes []network.NodeRecord, edges []network.EdgeRecord) *Report {
	report := &Report{Issues: make([]Issue, 0)}
	invalid := make(map[string]bool)

	seen := make(map[string]int)
	for _, rec := range nodes {
		seen[rec.ID]++
	}
	dupes := make([]string, 0)
	for id, count := range seen {
		if count > 1 {
			dupes = append(dupes, id)
		}
	}
	sort.Strings(dupes)
	for _, id := range dupes {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityError,
			Check:    CheckDuplicateID,
			Subjects: []string{id},
			Message:  fmt.Sprintf("node id %s appears %d times", id, seen[id]),
		})
		invalid["node:"+id] = true
	}

	for i, rec := range edges {
		edgeKey := fmt.Sprintf("edge:%s->%s", rec.FromID, rec.ToID)
		var missing []string
		if _, ok := seen[rec.FromID]; !ok {
			missing = append(missing, rec.FromID)
		}
		if _, ok := seen[rec.ToID]; !ok {
			missing = append(missing, rec.ToID)
		}
		if len(missing) > 0 {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError,
				Check:    CheckDanglingRef,
				Subjects: append([]string{fmt.Sprintf("%s->%s", rec.FromID, rec.ToID)}, missing...),
				Message:  fmt.Sprintf("edge record %d references missing node(s) %v", i, missing),
			})
			invalid[edgeKey] = true
		}
		if rec.LengthM <= 0 {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError,
				Check:    CheckInvalidLength,
				Subjects: []string{fmt.Sprintf("%s->%s", rec.FromID, rec.ToID)},
				Message:  fmt.Sprintf("edge record %d has non-positive length %v", i, rec.LengthM),
			})
			invalid[edgeKey] = true
		}
	}

	total := len(nodes) + len(edges)
	report.TotalElements = total
	report.ValidElements = total - len(invalid)
	if total > 0 {
		report.ValidationRate = float64(report.ValidElements) / float64(total) * 100
	}
	v.logReport("record validation", report)
	return report
}

// CheckGraph validates a constructed graph: disconnection, length
// plausibility, coordinate bounds, declared vs geometric length.
// Runnable before and after repair.
func (v *Validator) CheckGraph(g *network.Graph) *Report {
	report := &Report{Issues: make([]Issue, 0)}
	invalid := make(map[string]bool)

	components := g.WeaklyConnectedComponents()
	if len(components) > 1 {
		subjects := make([]string, len(components))
		for i, comp := range components {
			subjects[i] = comp[0]
		}
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityWarning,
			Check:    CheckDisconnected,
			Subjects: subjects,
			Message:  fmt.Sprintf("network has %d weakly connected components", len(components)),
		})
	}

	if v.cfg.Bounds.enabled() {
		for _, node := range g.Nodes() {
			if !node.Position.HasLatLng {
				continue
			}
			if !v.cfg.Bounds.contains(node.Position.Lat, node.Position.Lng) {
				report.Issues = append(report.Issues, Issue{
					Severity: SeverityError,
					Check:    CheckOutOfBounds,
					Subjects: []string{node.ID},
					Message: fmt.Sprintf("node %s at (%.6f, %.6f) is outside the configured bounding box",
						node.ID, node.Position.Lat, node.Position.Lng),
				})
				invalid["node:"+node.ID] = true
			}
		}
	}

	for _, edge := range g.Edges() {
		edgeKey := fmt.Sprintf("edge:%s->%s", edge.From, edge.To)
		if edge.LengthM <= 0 {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError,
				Check:    CheckInvalidLength,
				Subjects: []string{fmt.Sprintf("%s->%s", edge.From, edge.To)},
				Message:  fmt.Sprintf("conductor %s->%s has non-positive length %v", edge.From, edge.To, edge.LengthM),
			})
			invalid[edgeKey] = true
			continue
		}

		from, okF := g.Node(edge.From)
		to, okT := g.Node(edge.To)
		if !okF || !okT {
			continue
		}
		geo, ok := network.Distance(from.Position, to.Position)
		if !ok || geo == 0 {
			continue
		}
		deviation := math.Abs(edge.LengthM-geo) / geo
		if deviation > v.cfg.LengthTolerance {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarning,
				Check:    CheckLengthMismatch,
				Subjects: []string{fmt.Sprintf("%s->%s", edge.From, edge.To)},
				Message: fmt.Sprintf("conductor %s->%s declares %.1fm but endpoints are %.1fm apart (%.0f%% deviation)",
					edge.From, edge.To, edge.LengthM, geo, deviation*100),
			})
		}
	}

	total := g.NodeCount() + g.EdgeCount()
	report.TotalElements = total
	report.ValidElements = total - len(invalid)
	if total > 0 {
		report.ValidationRate = float64(report.ValidElements) / float64(total) * 100
	}
	v.logReport("graph validation", report)
	return report
}

func (v *Validator) logReport(phase string, report *Report) {
	v.log.Info(phase+" complete",
		logging.Int("issues", len(report.Issues)),
		logging.Float64("validation_rate", report.ValidationRate))
}
