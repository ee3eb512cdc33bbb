package source

import (
	"testing"

	"github.com/osenergy/gridmend/pkg/network"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

// TestDetect_PatternMatch: ids carrying transformer markers are found
// with 0.8 confidence
func TestDetect_PatternMatch(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "TX_MAIN", To: "POLE_1", LengthM: 10})
	g.AddEdge(network.Edge{From: "POLE_1", To: "POLE_2", LengthM: 10})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %d: %v", len(got), got)
	}
	c := got[0]
	if c.NodeID != "TX_MAIN" || c.Method != MethodPattern || c.Confidence != 0.8 {
		t.Errorf("unexpected candidate: %+v", c)
	}
}

// TestDetect_PatternMatchesName: the node name counts too, not just the id
func TestDetect_PatternMatchesName(t *testing.T) {
	g := network.NewGraph()
	g.AddNode(network.Node{ID: "N7", Name: "Village step-down point"})
	g.AddEdge(network.Edge{From: "N7", To: "N8", LengthM: 10})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 || got[0].NodeID != "N7" {
		t.Fatalf("Expected N7 via name match, got %v", got)
	}
}

func TestDetect_TransformerFlagCountsAsPattern(t *testing.T) {
	g := network.NewGraph()
	g.AddNode(network.Node{ID: "J7", IsTransformer: true, TransformerKVA: 50})
	g.AddEdge(network.Edge{From: "J7", To: "J8", LengthM: 10})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %v", got)
	}
	if got[0].Method != MethodPattern || got[0].CapacityKVA != 50 {
		t.Errorf("unexpected candidate: %+v", got[0])
	}
}

// TestDetect_TopologyZeroInDegree: the highest-degree MV node with no
// upstream feed scores 0.9
func TestDetect_TopologyZeroInDegree(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "A", To: "B", LengthM: 10, Voltage: network.VoltageMV})
	g.AddEdge(network.Edge{From: "A", To: "C", LengthM: 10, Voltage: network.VoltageMV})
	g.AddEdge(network.Edge{From: "C", To: "D", LengthM: 10, Voltage: network.VoltageLV})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %v", got)
	}
	c := got[0]
	if c.NodeID != "A" || c.Method != MethodTopology || c.Confidence != 0.9 {
		t.Errorf("unexpected candidate: %+v", c)
	}
}

// TestDetect_TopologyWithUpstream: an MV node that is fed from
// somewhere only scores 0.6
func TestDetect_TopologyWithUpstream(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "A", To: "B", LengthM: 10, Voltage: network.VoltageMV})
	g.AddEdge(network.Edge{From: "B", To: "C", LengthM: 10, Voltage: network.VoltageMV})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %v", got)
	}
	c := got[0]
	if c.NodeID != "B" || c.Confidence != 0.6 {
		t.Errorf("Expected B at 0.6 (highest degree, has upstream), got %+v", c)
	}
}

// TestDetect_SubnetworkRoots: one root per naming-derived subnetwork
func TestDetect_SubnetworkRoots(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "KET_1", To: "KET_2", LengthM: 10})
	g.AddEdge(network.Edge{From: "BAM_2", To: "BAM_3", LengthM: 10})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %v", got)
	}
	// Equal confidence ties order by node id
	if got[0].NodeID != "BAM_2" || got[1].NodeID != "KET_1" {
		t.Errorf("unexpected roots: %v", got)
	}
	for _, c := range got {
		if c.Method != MethodSubnetworkRoot || c.Confidence != 0.7 {
			t.Errorf("unexpected candidate: %+v", c)
		}
	}
}

// TestDetect_Fallback: nothing matches, the first node in input order
// is returned at rock-bottom confidence
func TestDetect_Fallback(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "Z", To: "Q", LengthM: 10})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %v", got)
	}
	c := got[0]
	if c.NodeID != "Z" || c.Method != MethodFallback || c.Confidence != 0.1 {
		t.Errorf("unexpected fallback candidate: %+v", c)
	}
}

// TestDetect_ManualHintsWin: hints outrank every heuristic, even with
// pattern matches present
func TestDetect_ManualHintsWin(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "TX_MAIN", To: "P1", LengthM: 10})

	hints := []network.SourceHint{{NodeID: "P1", CapacityKVA: 100}}
	got := newDetector(t).Detect(g, hints)
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %v", got)
	}
	c := got[0]
	if c.NodeID != "P1" || c.Method != MethodManual || c.Confidence != 1.0 || c.CapacityKVA != 100 {
		t.Errorf("unexpected candidate: %+v", c)
	}
}

func TestDetect_UnknownHintSkipped(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "P1", To: "P2", LengthM: 10})

	got := newDetector(t).Detect(g, []network.SourceHint{{NodeID: "GHOST"}})
	if len(got) != 0 {
		t.Errorf("Expected no candidates for unknown hints, got %v", got)
	}
}

func TestDetect_DuplicateHintsDeduplicated(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "P1", To: "P2", LengthM: 10})

	hints := []network.SourceHint{{NodeID: "P1"}, {NodeID: "P1"}}
	got := newDetector(t).Detect(g, hints)
	if len(got) != 1 {
		t.Errorf("Expected duplicates collapsed, got %v", got)
	}
}

func TestDetect_EmptyGraph(t *testing.T) {
	got := newDetector(t).Detect(network.NewGraph(), nil)
	if len(got) != 0 {
		t.Errorf("Expected no candidates for an empty graph, got %v", got)
	}
}

// TestDetect_VoltageClassFromName: voltage markers in names set the
// high-side voltage; otherwise 19kV SWER is assumed
func TestDetect_VoltageClassFromName(t *testing.T) {
	g := network.NewGraph()
	g.AddNode(network.Node{ID: "S1", Name: "Ketumbi 33kV substation"})
	g.AddEdge(network.Edge{From: "S1", To: "P1", LengthM: 10})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 || got[0].VoltageHigh != 33000 {
		t.Fatalf("Expected 33000V class, got %v", got)
	}

	g2 := network.NewGraph()
	g2.AddEdge(network.Edge{From: "TX_A", To: "P1", LengthM: 10})
	got2 := newDetector(t).Detect(g2, nil)
	if len(got2) != 1 || got2[0].VoltageHigh != 19000 {
		t.Fatalf("Expected 19kV default class, got %v", got2)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	if _, err := New(Config{Patterns: []string{"(unclosed"}}); err == nil {
		t.Error("Expected compile error for invalid pattern")
	}
}

// TestDetect_PriorityOrder: pattern beats topology when both would match
func TestDetect_PriorityOrder(t *testing.T) {
	g := network.NewGraph()
	g.AddEdge(network.Edge{From: "TX_SITE", To: "P1", LengthM: 10, Voltage: network.VoltageMV})
	g.AddEdge(network.Edge{From: "P1", To: "P2", LengthM: 10, Voltage: network.VoltageMV})

	got := newDetector(t).Detect(g, nil)
	if len(got) != 1 || got[0].Method != MethodPattern {
		t.Errorf("Expected pattern detection to win, got %v", got)
	}
}
