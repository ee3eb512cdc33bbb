package voltage

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/osenergy/gridmend/pkg/catalog"
	"github.com/osenergy/gridmend/pkg/network"
)

func newAnalyzer(t *testing.T, cfg Config) *Analyzer {
	t.Helper()
	a, err := New(catalog.Default(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

// TestAnalyze_ChainDropMatchesFormula checks the per-segment drop on a
// two-segment MV chain of AAC 50mm² against a hand-computed value:
// sqrt(3) * 10A * 0.5km * (0.641*0.85 + 0.38*sin(phi)).
func TestAnalyze_ChainDropMatchesFormula(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 500, SpecID: "AAC_50", Voltage: network.VoltageMV})
	g.AddEdge(network.Edge{From: "P1", To: "P2", LengthM: 500, SpecID: "AAC_50", Voltage: network.VoltageMV})

	a := newAnalyzer(t, DefaultConfig())
	res, err := a.Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	sinPhi := math.Sqrt(1 - 0.85*0.85)
	segDrop := math.Sqrt(3) * 10 * 0.5 * (0.641*0.85 + 0.38*sinPhi)

	if v := res.Nodes["SRC"].Voltage; v != 11000 {
		t.Errorf("source voltage should be V0, got %v", v)
	}
	if v := res.Nodes["P1"].Voltage; math.Abs(v-(11000-segDrop)) > 1e-6 {
		t.Errorf("P1: expected %v, got %v", 11000-segDrop, v)
	}
	if v := res.Nodes["P2"].Voltage; math.Abs(v-(11000-2*segDrop)) > 1e-6 {
		t.Errorf("P2: expected %v, got %v", 11000-2*segDrop, v)
	}

	wantPct := 2 * segDrop / 11000 * 100
	if pct := res.Nodes["P2"].DropPercent; math.Abs(pct-wantPct) > 1e-9 {
		t.Errorf("P2 drop percent: expected %v, got %v", wantPct, pct)
	}
	if len(res.Violations) != 0 {
		t.Errorf("Expected no violations at ~0.1%% drop, got %v", res.Violations)
	}
	if got := res.Nodes["P2"].PathFromSource; len(got) != 3 || got[0] != "SRC" || got[2] != "P2" {
		t.Errorf("unexpected path: %v", got)
	}
}

// TestAnalyze_LVSegmentSkipsPhaseFactor: lv-tagged segments drop
// without the sqrt(3) factor
func TestAnalyze_LVSegmentSkipsPhaseFactor(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 500, SpecID: "AAC_50", Voltage: network.VoltageLV})

	res, err := newAnalyzer(t, DefaultConfig()).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	sinPhi := math.Sqrt(1 - 0.85*0.85)
	segDrop := 10 * 0.5 * (0.641*0.85 + 0.38*sinPhi)
	if v := res.Nodes["P1"].Voltage; math.Abs(v-(11000-segDrop)) > 1e-6 {
		t.Errorf("Expected %v, got %v", 11000-segDrop, v)
	}
}

// TestAnalyze_VoltageMonotonicAndClamped: voltage never rises along a
// feeder and never goes below zero, even on absurdly long lines.
func TestAnalyze_VoltageMonotonicAndClamped(t *testing.T) {
	g := network.NewGraph()
	prev := "SRC"
	ids := []string{"SRC"}
	for _, id := range []string{"P1", "P2", "P3", "P4"} {
		g.AddEdge(network.Edge{From: prev, To: id, LengthM: 500_000, SpecID: "AAC_16", Voltage: network.VoltageMV})
		prev = id
		ids = append(ids, id)
	}

	res, err := newAnalyzer(t, DefaultConfig()).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	for i := 1; i < len(ids); i++ {
		up := res.Nodes[ids[i-1]].Voltage
		down := res.Nodes[ids[i]].Voltage
		if down > up {
			t.Errorf("voltage rose along the feeder: %s %v -> %s %v", ids[i-1], up, ids[i], down)
		}
		if down < 0 {
			t.Errorf("voltage went negative at %s: %v", ids[i], down)
		}
		if pct := res.Nodes[ids[i]].DropPercent; pct > 100+1e-9 {
			t.Errorf("drop percent beyond 100 at %s: %v", ids[i], pct)
		}
	}
	if res.Nodes["P4"].Voltage != 0 {
		t.Errorf("Expected full collapse at the end, got %v", res.Nodes["P4"].Voltage)
	}
}

// TestAnalyze_ViolationIsStrictlyOver: nodes exactly at the threshold
// are within limits; only strictly-over nodes are flagged.
func TestAnalyze_ViolationThreshold(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "FAR", LengthM: 200_000, SpecID: "AAC_16", Voltage: network.VoltageMV})

	res, err := newAnalyzer(t, DefaultConfig()).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0] != "FAR" {
		t.Fatalf("Expected FAR flagged, got %v", res.Violations)
	}
	if res.Nodes["FAR"].WithinLimits {
		t.Error("FAR should be outside limits")
	}
	if res.Stats.ViolationCount != 1 {
		t.Errorf("Expected violation count 1, got %d", res.Stats.ViolationCount)
	}

	// With a 100% threshold nothing can be flagged
	cfg := DefaultConfig()
	cfg.ThresholdPercent = 100
	res, err = newAnalyzer(t, cfg).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Errorf("Expected no violations at 100%% threshold, got %v", res.Violations)
	}
}

// TestAnalyze_UnknownSpecFallsBackWithWarning: unknown conductor specs
// substitute the default and warn once per spec id
func TestAnalyze_UnknownSpecFallsBackWithWarning(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 500, SpecID: "UNOBTANIUM", Voltage: network.VoltageMV})
	g.AddEdge(network.Edge{From: "P1", To: "P2", LengthM: 500, SpecID: "UNOBTANIUM", Voltage: network.VoltageMV})

	res, err := newAnalyzer(t, DefaultConfig()).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	warned := 0
	for _, w := range res.Warnings {
		if strings.Contains(w, "UNOBTANIUM") {
			warned++
		}
	}
	if warned != 1 {
		t.Errorf("Expected exactly one warning for the unknown spec, got %d: %v", warned, res.Warnings)
	}

	// Drop must match the default AAC_35 conductor
	sinPhi := math.Sqrt(1 - 0.85*0.85)
	segDrop := math.Sqrt(3) * 10 * 0.5 * (0.917*0.85 + 0.39*sinPhi)
	if v := res.Nodes["P1"].Voltage; math.Abs(v-(11000-segDrop)) > 1e-6 {
		t.Errorf("Expected default-spec drop, got voltage %v", v)
	}
}

func TestAnalyze_MissingDefaultSpecIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultSpecID = "NOT_IN_CATALOG"
	a, err := New(catalog.Default(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 500, SpecID: "ALSO_UNKNOWN"})

	if _, err := a.Analyze(g, "SRC"); err == nil {
		t.Error("Expected an error when the default spec is missing too")
	}
}

// TestAnalyze_AccumulatedCurrentModel: segment current follows the
// downstream customer count
func TestAnalyze_AccumulatedCurrentModel(t *testing.T) {
	g := network.NewGraph()
	g.AddNode(network.Node{ID: "SRC"})
	g.AddNode(network.Node{ID: "P1", Customers: 2})
	g.AddNode(network.Node{ID: "P2", Customers: 3})
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 500, SpecID: "AAC_50", Voltage: network.VoltageMV})
	g.AddEdge(network.Edge{From: "P1", To: "P2", LengthM: 500, SpecID: "AAC_50", Voltage: network.VoltageMV})

	cfg := DefaultConfig()
	cfg.CurrentModel = CurrentAccumulated
	res, err := newAnalyzer(t, cfg).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	denom := math.Sqrt(3) * 11000 * 0.85
	// SRC->P1 carries all 5 customers at 2kW each
	wantFirst := 5 * 2.0 * 1000 / denom
	if i := res.Nodes["P1"].CurrentAmps; math.Abs(i-wantFirst) > 1e-9 {
		t.Errorf("P1 current: expected %v, got %v", wantFirst, i)
	}
	// P1->P2 carries only P2's 3 customers
	wantSecond := 3 * 2.0 * 1000 / denom
	if i := res.Nodes["P2"].CurrentAmps; math.Abs(i-wantSecond) > 1e-9 {
		t.Errorf("P2 current: expected %v, got %v", wantSecond, i)
	}
	if res.Nodes["P1"].CurrentAmps <= res.Nodes["P2"].CurrentAmps {
		t.Error("upstream segments must carry at least downstream current")
	}
}

func TestAnalyze_AccumulatedZeroCustomersNoDrop(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 500, SpecID: "AAC_50", Voltage: network.VoltageMV})

	cfg := DefaultConfig()
	cfg.CurrentModel = CurrentAccumulated
	res, err := newAnalyzer(t, cfg).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if v := res.Nodes["P1"].Voltage; v != 11000 {
		t.Errorf("no customers means no current and no drop, got %v", v)
	}
}

// TestAnalyze_OverloadWarning: current above the conductor rating is
// reported
func TestAnalyze_OverloadWarning(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 100, SpecID: "AAC_16", Voltage: network.VoltageMV})

	cfg := DefaultConfig()
	cfg.FlatCurrentAmps = 150 // AAC_16 is rated 96A
	res, err := newAnalyzer(t, cfg).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "overloaded") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an overload warning, got %v", res.Warnings)
	}
}

func TestAnalyze_EmptyGraph(t *testing.T) {
	res, err := newAnalyzer(t, DefaultConfig()).Analyze(network.NewGraph(), "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(res.Nodes) != 0 || len(res.Edges) != 0 || len(res.Violations) != 0 {
		t.Errorf("Expected an empty analysis, got %+v", res)
	}
}

func TestAnalyze_MissingSource(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "A", To: "B", LengthM: 10})

	_, err := newAnalyzer(t, DefaultConfig()).Analyze(g, "GHOST")
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}
}

func TestAnalyze_UnreachableNodesWarned(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "SRC", To: "P1", LengthM: 100, SpecID: "AAC_50"})
	g.AddEdge(network.Edge{From: "X", To: "Y", LengthM: 100, SpecID: "AAC_50"})

	res, err := newAnalyzer(t, DefaultConfig()).Analyze(g, "SRC")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Stats.UnreachableNodes != 2 {
		t.Errorf("Expected 2 unreachable nodes, got %d", res.Stats.UnreachableNodes)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "not reachable") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an unreachable warning, got %v", res.Warnings)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg := DefaultConfig()
	cfg.CurrentModel = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty current model must be rejected")
	}

	cfg = DefaultConfig()
	cfg.CurrentModel = "psychic"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown current model must be rejected")
	}

	cfg = DefaultConfig()
	cfg.PowerFactor = 1.2
	if err := cfg.Validate(); err == nil {
		t.Error("power factor above 1 must be rejected")
	}

	cfg = DefaultConfig()
	cfg.SourceVoltage = 0
	cfg.PowerFactor = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected joined errors")
	}
	if !strings.Contains(err.Error(), "source_voltage") || !strings.Contains(err.Error(), "power_factor") {
		t.Errorf("Expected every problem reported, got %v", err)
	}
}
